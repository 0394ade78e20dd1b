package dav

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"
)

// WebDAV methods not covered by net/http's method constants.
const (
	methodPropfind = "PROPFIND"
	methodMkcol    = "MKCOL"
)

const (
	contentTypeXML    = `application/xml; charset=utf-8`
	contentTypeBinary = "application/octet-stream"
)

// Client issues WebDAV operations against arbitrary servers. Every
// operation starts immediately, returns a cancellable Handle, and
// invokes its completion exactly once: synchronously for local
// validation failures, asynchronously for everything else. Transport
// sessions are reused per distinct account identity.
type Client struct {
	sessions *SessionManager
	logger   *slog.Logger
}

// NewClient creates a Client. trust may be nil for standard certificate
// verification; logger may be nil for slog.Default().
func NewClient(trust TrustDecider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		sessions: NewSessionManager(trust, logger),
		logger:   logger,
	}
}

// Reset discards all transport sessions.
func (c *Client) Reset() {
	c.sessions.Reset()
}

// ListFiles lists the resources at path via PROPFIND. On success the
// completion receives one FileRecord per multi-status response element,
// in document order.
func (c *Client) ListFiles(
	path string, account Account, password string, complete func([]FileRecord, error),
) *Handle {
	return c.start("listing files", methodPropfind, path, account, password,
		strings.NewReader(propfindBody), contentTypeXML,
		func(status int, payload []byte, err error) {
			if cerr := finalize(status, err); cerr != nil {
				complete(nil, cerr)

				return
			}

			if !utf8.Valid(payload) {
				complete(nil, &DavError{StatusCode: status, Err: ErrUnreadableResponse})

				return
			}

			complete(parseMultistatus(payload, c.logger), nil)
		})
}

// Upload stores data at path via PUT, overwriting any existing resource.
func (c *Client) Upload(
	data []byte, path string, account Account, password string, complete func(error),
) *Handle {
	return c.start("uploading", http.MethodPut, path, account, password,
		bytes.NewReader(data), contentTypeBinary,
		func(status int, _ []byte, err error) {
			complete(finalize(status, err))
		})
}

// UploadFile streams the local file at localPath to path via PUT.
// The file is opened before the transfer starts and closed when the
// operation resolves.
func (c *Client) UploadFile(
	localPath, path string, account Account, password string, complete func(error),
) *Handle {
	f, err := os.Open(localPath)
	if err != nil {
		h := newHandle(nil)
		h.complete(func() {
			complete(&DavError{Message: err.Error(), Err: ErrNetwork})
		})

		return h
	}

	return c.start("uploading file", http.MethodPut, path, account, password,
		f, contentTypeBinary,
		func(status int, _ []byte, rerr error) {
			f.Close()
			complete(finalize(status, rerr))
		})
}

// Download fetches the resource at path via GET. On success the
// completion receives the raw response bytes.
func (c *Client) Download(
	path string, account Account, password string, complete func([]byte, error),
) *Handle {
	return c.start("downloading", http.MethodGet, path, account, password,
		nil, "",
		func(status int, payload []byte, err error) {
			if cerr := finalize(status, err); cerr != nil {
				complete(nil, cerr)

				return
			}

			complete(payload, nil)
		})
}

// CreateFolder creates a collection at path via MKCOL. A missing parent
// or an existing resource at path resolves to ErrConflict.
func (c *Client) CreateFolder(
	path string, account Account, password string, complete func(error),
) *Handle {
	return c.start("creating folder", methodMkcol, path, account, password,
		nil, "",
		func(status int, _ []byte, err error) {
			complete(finalize(status, err))
		})
}

// DeleteFile removes the resource at path via DELETE.
func (c *Client) DeleteFile(
	path string, account Account, password string, complete func(error),
) *Handle {
	return c.start("deleting", http.MethodDelete, path, account, password,
		nil, "",
		func(status int, _ []byte, err error) {
			complete(finalize(status, err))
		})
}

// start runs the shared pipeline behind every operation: resolve the
// account, build the authenticated request, execute it on the
// identity's session. Local validation failures resolve the handle
// synchronously, before any network activity; finish then receives an
// already-classified error and a zero status.
func (c *Client) start(
	op, method, path string,
	account Account, password string,
	body io.Reader, contentType string,
	finish func(status int, payload []byte, err error),
) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(cancel)

	id, err := resolveIdentity(account, password)
	if err != nil {
		cancel()
		h.complete(func() { finish(0, nil, err) })

		return h
	}

	req, err := newRequest(ctx, id, password, path, method, body)
	if err != nil {
		cancel()
		h.complete(func() {
			finish(0, nil, &DavError{Message: err.Error(), Err: ErrInvalidCredentials})
		})

		return h
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Info(op,
		slog.String("method", method),
		slog.String("path", path),
		slog.String("username", id.Username),
	)

	c.sessions.execute(id, req, h, finish)

	return h
}

// finalize turns a raw outcome into the operation's terminal error.
// Locally classified errors pass through; raw transport outcomes go
// through the status decision table.
func finalize(status int, err error) error {
	var de *DavError
	if errors.As(err, &de) {
		return err
	}

	return classify(status, err)
}
