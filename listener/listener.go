package listener

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

// DefaultHandshakeTimeout bounds both the protocol peek and the TLS handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// connWrapper serves reads from the buffered reader so peeked bytes are not lost
type connWrapper struct {
	net.Conn
	io.Reader
}

func (cw *connWrapper) Read(b []byte) (int, error) {
	return cw.Reader.Read(b)
}

// ProtocolMuxListener inspects each accepted connection and terminates TLS
// when the client opens with a TLS handshake record. Anything else is handed
// back as plain TCP, so the dashboard answers http:// and https:// on one port.
type ProtocolMuxListener struct {
	net.Listener
	TLSConfig *tls.Config
	Timeout   time.Duration
}

func NewProtocolMuxListener(listener net.Listener, tlsConfig *tls.Config) *ProtocolMuxListener {
	return &ProtocolMuxListener{
		Listener:  listener,
		TLSConfig: tlsConfig,
		Timeout:   DefaultHandshakeTimeout,
	}
}

func (l *ProtocolMuxListener) timeout() time.Duration {
	if l.Timeout <= 0 {
		return DefaultHandshakeTimeout
	}
	return l.Timeout
}

func (l *ProtocolMuxListener) Accept() (net.Conn, error) {
	rawConnection, err := l.Listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}

	bufferedReader := bufio.NewReader(rawConnection)

	err = rawConnection.SetReadDeadline(time.Now().Add(l.timeout()))
	if err != nil {
		rawConnection.Close()
		return nil, fmt.Errorf("setting read deadline for peek: %w", err)
	}

	peekedBytes, err := bufferedReader.Peek(5)

	if err := rawConnection.SetReadDeadline(time.Time{}); err != nil {
		rawConnection.Close()
		return nil, fmt.Errorf("clearing read deadline after peek: %w", err)
	}
	if err != nil && err != bufio.ErrBufferFull {
		rawConnection.Close()
		return nil, fmt.Errorf("peeking initial bytes: %w", err)
	}

	wrapped := &connWrapper{
		Conn:   rawConnection,
		Reader: bufferedReader,
	}

	isTLS := len(peekedBytes) >= 2 && peekedBytes[0] == 0x16 && peekedBytes[1] == 0x03
	if !isTLS || l.TLSConfig == nil {
		return wrapped, nil
	}

	tlsConn := tls.Server(wrapped, l.TLSConfig)
	if err := rawConnection.SetReadDeadline(time.Now().Add(l.timeout())); err != nil {
		tlsConn.Close()
		return nil, fmt.Errorf("setting read deadline for handshake: %w", err)
	}

	if err := tlsConn.Handshake(); err != nil {
		rawConnection.SetReadDeadline(time.Time{})
		tlsConn.Close()
		return nil, fmt.Errorf("performing tls handshake: %w", err)
	}
	if err := rawConnection.SetReadDeadline(time.Time{}); err != nil {
		tlsConn.Close()
		return nil, fmt.Errorf("clearing read deadline after handshake: %w", err)
	}
	return tlsConn, nil
}

// ResilientListener keeps accepting after per-connection failures such as a
// bad handshake. Only a closed listener ends the Accept loop.
type ResilientListener struct {
	net.Listener
	logger  *slog.Logger
	onError func(error)
}

// ResilientOption configures a ResilientListener.
type ResilientOption func(*ResilientListener)

// WithLogger sets the logger rejected connections are reported to.
func WithLogger(logger *slog.Logger) ResilientOption {
	return func(l *ResilientListener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithErrorHandler registers fn to be called for every rejected connection.
func WithErrorHandler(fn func(error)) ResilientOption {
	return func(l *ResilientListener) {
		l.onError = fn
	}
}

func NewResilientListener(listenerToWrap net.Listener, opts ...ResilientOption) *ResilientListener {
	l := &ResilientListener{
		Listener: listenerToWrap,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ResilientListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, err
			}

			l.logger.Debug("connection rejected", "error", err)
			if l.onError != nil {
				l.onError(err)
			}
			continue
		}
		return conn, nil
	}
}
