package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	utls "github.com/refraction-networking/utls"
)

// newChromeTransport returns a transport whose TLS ClientHello mimics Chrome.
// TLSClientConfig.InsecureSkipVerify and RootCAs, when set on the returned
// transport, are honoured by the handshake.
func newChromeTransport() *http.Transport {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 4,
	}
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		sniHost, _, err := net.SplitHostPort(addr)
		if err != nil {
			sniHost = addr
		}

		config := &utls.Config{ServerName: sniHost}
		if transport.TLSClientConfig != nil {
			config.InsecureSkipVerify = transport.TLSClientConfig.InsecureSkipVerify
			config.RootCAs = transport.TLSClientConfig.RootCAs
		}

		uConn := utls.UClient(tcpConn, config, utls.HelloChrome_Auto)
		if err := uConn.BuildHandshakeState(); err != nil {
			tcpConn.Close()
			return nil, fmt.Errorf("building handshake state : %w", err)
		}

		// HelloChrome_Auto advertises h2 regardless of NextProtos. The
		// transport only speaks http/1.1 over a custom dialer.
		foundALPN := false
		for _, ext := range uConn.Extensions {
			if alpnExt, ok := ext.(*utls.ALPNExtension); ok {
				alpnExt.AlpnProtocols = []string{"http/1.1"}
				foundALPN = true
				break
			}
		}
		if !foundALPN {
			tcpConn.Close()
			return nil, errors.New("could not find ALPNExtension")
		}

		if err := uConn.HandshakeContext(ctx); err != nil {
			tcpConn.Close()
			return nil, err
		}
		return uConn, nil
	}
	return transport
}
