package dav

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const userAgent = "webdav-go/0.1"

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into the request URL.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// basicAuth returns the value of an Authorization header carrying the
// Base64-encoded "username:password" pair.
func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// newRequest builds an authenticated request for path resolved against
// the identity's base URL. The path is always treated as relative to
// the base; a leading slash is stripped, never honored as an absolute
// override. Basic auth is the sole authentication mechanism: no
// cookies, no token refresh.
func newRequest(
	ctx context.Context, id *Identity, password, path, method string, body io.Reader,
) (*http.Request, error) {
	u := *id.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/")

	if rel := strings.Trim(norm.NFC.String(path), "/"); rel != "" {
		u.Path += "/" + rel
	}

	// Directory-addressing methods keep the trailing slash the caller gave.
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	target := u.Scheme + "://" + u.Host + encodePathSegments(u.Path)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("dav: creating request: %w", err)
	}

	req.Header.Set("Authorization", basicAuth(id.Username, password))
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}
