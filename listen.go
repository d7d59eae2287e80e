package gantry

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/tfkr-ae/gantry/core"
	"github.com/tfkr-ae/gantry/listener"
)

// ErrIncompleteTLS is returned when only one of tls_cert and tls_key is set.
var ErrIncompleteTLS = errors.New("tls_cert and tls_key must be set together")

// TLSConfig loads the configured certificate pair. It returns nil when no
// certificate is configured.
func (app *App) TLSConfig() (*tls.Config, error) {
	cert, key := app.Config.TLSCert, app.Config.TLSKey
	if cert == "" && key == "" {
		return nil, nil
	}
	if cert == "" || key == "" {
		return nil, ErrIncompleteTLS
	}
	pair, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		return nil, fmt.Errorf("loading key pair : %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Listen opens the dashboard listener on addr. With a certificate configured,
// TLS and plain HTTP clients share the port. Rejected connections are
// persisted as WARN logs and never stop the accept loop.
func (app *App) Listen(addr string) (net.Listener, error) {
	tlsConfig, err := app.TLSConfig()
	if err != nil {
		return nil, err
	}
	rawListener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("setting up listener on %s : %w", addr, err)
	}
	muxListener := listener.NewProtocolMuxListener(rawListener, tlsConfig)
	return listener.NewResilientListener(muxListener,
		listener.WithLogger(app.Logger),
		listener.WithErrorHandler(func(err error) {
			if logErr := app.WriteLog("WARN", "connection rejected", core.LogWithContext(map[string]any{"error": err.Error()})); logErr != nil {
				app.Logger.Error("persisting listener error", "error", logErr)
			}
		}),
	), nil
}
