package dav

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Account supplies the connection identity for a WebDAV server. Host is
// a hostname or URL ("dav.example.com", "https://dav.example.com");
// a bare hostname defaults to https. Optional capabilities are
// discovered by interface assertion: implement Port() int for a
// non-default port and BasePath() string for a path prefix such as
// "/remote.php/webdav".
type Account interface {
	Host() string
	Username() string
}

// BasicAccount is a plain-value Account for callers that do not carry
// their own credential type.
type BasicAccount struct {
	ServerURL  string
	User       string
	ServerPort int
	RootPath   string
}

func (a BasicAccount) Host() string     { return a.ServerURL }
func (a BasicAccount) Username() string { return a.User }
func (a BasicAccount) Port() int        { return a.ServerPort }
func (a BasicAccount) BasePath() string { return a.RootPath }

// Identity is the canonical, immutable form of a resolved account.
// It keys transport sessions and feeds request construction; it never
// holds the password.
type Identity struct {
	BaseURL  *url.URL
	Username string
}

// key returns the session-map key for this identity.
func (id *Identity) key() string {
	return id.BaseURL.String() + "\x00" + id.Username
}

// resolveIdentity validates an account and password into an Identity.
// It is a pure function: no network access, deterministic. All failures
// wrap ErrInvalidCredentials.
func resolveIdentity(account Account, password string) (*Identity, error) {
	host := strings.TrimSpace(account.Host())
	if host == "" {
		return nil, &DavError{Message: "empty host", Err: ErrInvalidCredentials}
	}

	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return nil, &DavError{Message: fmt.Sprintf("unparsable host %q", account.Host()), Err: ErrInvalidCredentials}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &DavError{Message: fmt.Sprintf("unsupported scheme %q", u.Scheme), Err: ErrInvalidCredentials}
	}

	if p, ok := account.(interface{ Port() int }); ok && p.Port() > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(p.Port()))
	}

	if bp, ok := account.(interface{ BasePath() string }); ok {
		if base := strings.Trim(bp.BasePath(), "/"); base != "" {
			u.Path = strings.TrimSuffix(u.Path, "/") + "/" + base
		}
	}

	username := account.Username()
	if username == "" {
		return nil, &DavError{Message: "empty username", Err: ErrInvalidCredentials}
	}

	if strings.Contains(username, ":") {
		// The Basic credential is "username:password"; a colon in the
		// username would be indistinguishable from the separator.
		return nil, &DavError{Message: "username contains ':'", Err: ErrInvalidCredentials}
	}

	if !headerEncodable(username) || !headerEncodable(password) {
		return nil, &DavError{Message: "credentials not encodable", Err: ErrInvalidCredentials}
	}

	// Normalize to NFC so the same account spelled with different
	// Unicode compositions resolves to one identity and one session.
	return &Identity{BaseURL: u, Username: norm.NFC.String(username)}, nil
}

// headerEncodable reports whether s can be carried in an Authorization
// header: valid UTF-8 with no control characters.
func headerEncodable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}

	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}
