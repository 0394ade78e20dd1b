package dav

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// TrustDecision is the outcome of a server-trust callback.
type TrustDecision int

const (
	// TrustUseDefault runs standard certificate chain verification.
	TrustUseDefault TrustDecision = iota
	// TrustAccept accepts the presented certificate chain as-is.
	TrustAccept
	// TrustReject rejects the connection.
	TrustReject
)

// TrustDecider is consulted synchronously whenever a server presents a
// TLS certificate. It lets callers support self-signed or custom-CA
// servers without weakening verification for every other session.
type TrustDecider func(host string, cs tls.ConnectionState) TrustDecision

// AcceptAnyCertificate is a TrustDecider that accepts every server
// certificate, for self-signed test servers. Do not use it against
// servers you do not control.
func AcceptAnyCertificate(string, tls.ConnectionState) TrustDecision {
	return TrustAccept
}

// errTrustRejected is returned from the TLS handshake when the
// TrustDecider rejects a server certificate.
var errTrustRejected = errors.New("dav: server certificate rejected by trust decider")

// session is one reusable transport context for a single identity.
// It shares nothing with other sessions or with the process default
// client: no cookie jar, no persistent cache.
type session struct {
	httpClient *http.Client
}

// SessionManager maintains one session per distinct Identity and issues
// asynchronous transport operations on them. It is safe for concurrent
// use; sessions may carry multiple in-flight requests at once.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session

	trust  TrustDecider
	logger *slog.Logger
}

// NewSessionManager creates a SessionManager. trust may be nil, in
// which case standard certificate verification applies everywhere.
func NewSessionManager(trust TrustDecider, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		sessions: make(map[string]*session),
		trust:    trust,
		logger:   logger,
	}
}

// session returns the session for id, creating it lazily on first use.
func (m *SessionManager) session(id *Identity) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := id.key()
	if s, ok := m.sessions[key]; ok {
		return s
	}

	s := &session{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: true,
				TLSClientConfig:   m.tlsConfig(id.BaseURL.Hostname()),
			},
			// No Jar: Basic auth is the sole authentication
			// mechanism, and sessions must not accumulate state.
		},
	}
	m.sessions[key] = s

	m.logger.Debug("session created",
		slog.String("base_url", id.BaseURL.String()),
		slog.String("username", id.Username),
	)

	return s
}

// Reset discards all sessions and closes their idle connections.
// In-flight operations on discarded sessions run to completion.
func (m *SessionManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if t, ok := s.httpClient.Transport.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
	}

	m.sessions = make(map[string]*session)
}

// tlsConfig builds the per-session TLS configuration. With a
// TrustDecider installed, the built-in verification is replaced by
// VerifyConnection so the decider sees every handshake; TrustUseDefault
// falls through to standard chain verification.
func (m *SessionManager) tlsConfig(host string) *tls.Config {
	if m.trust == nil {
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}

	trust := m.trust

	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // VerifyConnection below performs verification
		VerifyConnection: func(cs tls.ConnectionState) error {
			switch trust(host, cs) {
			case TrustAccept:
				return nil
			case TrustReject:
				return errTrustRejected
			default:
				return verifyChain(cs)
			}
		},
	}
}

// verifyChain performs standard certificate chain verification against
// the system roots, as crypto/tls would have done natively.
func verifyChain(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("dav: server presented no certificate")
	}

	opts := x509.VerifyOptions{
		DNSName:       cs.ServerName,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}

	_, err := cs.PeerCertificates[0].Verify(opts)

	return err
}

// Handle is a cancellable reference to one in-flight operation.
// Cancel is idempotent and safe to call at any time, including after
// natural completion (a no-op in that case). The operation's completion
// fires exactly once, with whichever of the cancellation outcome or the
// original outcome resolves first.
type Handle struct {
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func newHandle(cancel context.CancelFunc) *Handle {
	return &Handle{cancel: cancel, done: make(chan struct{})}
}

// Cancel requests best-effort cancellation of the operation.
func (h *Handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Wait blocks until the operation's completion has run.
func (h *Handle) Wait() {
	<-h.done
}

// complete runs fn at most once and marks the handle done.
func (h *Handle) complete(fn func()) {
	h.once.Do(func() {
		fn()
		close(h.done)
	})
}

// execute issues req on the identity's session and resolves h with the
// raw transport outcome: status code, response payload, and transport
// error. Exactly one of the error and a valid status is meaningful; the
// completion runs on the transport goroutine, at most once.
func (m *SessionManager) execute(
	id *Identity, req *http.Request, h *Handle, complete func(status int, body []byte, err error),
) {
	sess := m.session(id)

	go func() {
		resp, err := sess.httpClient.Do(req)
		if err != nil {
			h.complete(func() { complete(0, nil, err) })

			return
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			// The transport signaled both a status and a failure;
			// the failure wins so the caller sees one outcome.
			h.complete(func() { complete(0, nil, readErr) })

			return
		}

		h.complete(func() { complete(resp.StatusCode, body, nil) })
	}()
}
