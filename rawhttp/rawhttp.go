// Package rawhttp turns catalog requests and responses into readable dumps for
// trace logging, and decodes compressed response bodies.
package rawhttp

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yosssi/gohtml"
)

// Prettify indents a JSON, XML or HTML body. Anything else, including an
// empty body, yields an empty slice.
func Prettify(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []byte{}, nil
	}

	for _, pretty := range []func([]byte) ([]byte, bool, error){prettyJSON, prettyXML, prettyHTML} {
		out, ok, err := pretty(trimmed)
		if err != nil {
			return []byte{}, err
		}
		if ok {
			return out, nil
		}
	}
	return []byte{}, nil
}

func prettyJSON(body []byte) ([]byte, bool, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false, nil
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("remarshalling JSON: %w", err)
	}
	return out, true, nil
}

func prettyXML(body []byte) ([]byte, bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil || doc.Root() == nil {
		return nil, false, nil
	}
	doc.Indent(1)
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, false, fmt.Errorf("writing indented XML : %w", err)
	}
	return out.Bytes(), true, nil
}

func prettyHTML(body []byte) ([]byte, bool, error) {
	looksLikeMarkup := bytes.HasPrefix(body, []byte("<")) && !bytes.HasPrefix(body, []byte("<?xml"))
	if !strings.Contains(mimetype.Detect(body).String(), "text/html") && !looksLikeMarkup {
		return nil, false, nil
	}
	out := gohtml.FormatBytes(body)
	if len(out) == 0 || bytes.Equal(out, body) {
		return nil, false, nil
	}
	return out, true, nil
}

// Dump is a captured request or response. Pretty holds the headers followed by
// the prettified body, and is empty when the body could not be prettified.
type Dump struct {
	Raw    []byte
	Pretty string
}

// String returns the pretty form when there is one, the raw form otherwise.
func (d Dump) String() string {
	if d.Pretty != "" {
		return d.Pretty
	}
	return string(d.Raw)
}

func newDump(head []byte, body []byte) Dump {
	raw := make([]byte, 0, len(head)+len(body))
	raw = append(append(raw, head...), body...)

	pretty, err := Prettify(body)
	if err != nil || len(pretty) == 0 {
		return Dump{Raw: raw}
	}
	return Dump{Raw: raw, Pretty: string(head) + string(pretty)}
}

// readBody drains body and returns its bytes together with a fresh reader
// over them. A nil body reads as empty.
func readBody(body io.ReadCloser) ([]byte, io.ReadCloser, error) {
	if body == nil || body == http.NoBody {
		return []byte{}, body, nil
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, err
	}
	return data, io.NopCloser(bytes.NewReader(data)), nil
}

// DumpRequest captures req and resets its body so it can still be sent.
func DumpRequest(req *http.Request) (Dump, error) {
	head, err := httputil.DumpRequest(req, false)
	if err != nil {
		return Dump{}, fmt.Errorf("dumping request : %w", err)
	}
	body, reset, err := readBody(req.Body)
	if err != nil {
		return Dump{}, fmt.Errorf("reading request body: %w", err)
	}
	req.Body = reset
	return newDump(head, body), nil
}

// DumpResponse captures res and resets its body so it can still be consumed.
func DumpResponse(res *http.Response) (Dump, error) {
	head, err := httputil.DumpResponse(res, false)
	if err != nil {
		return Dump{}, fmt.Errorf("dumping response : %w", err)
	}
	body, reset, err := readBody(res.Body)
	if err != nil {
		return Dump{}, fmt.Errorf("reading response body: %w", err)
	}
	res.Body = reset
	return newDump(head, body), nil
}

// Decompress replaces a gzip or br encoded response body with the decoded
// bytes, dropping Content-Encoding and fixing Content-Length. Other encodings
// are left alone.
func Decompress(res *http.Response) error {
	if res.Body == nil || res.Body == http.NoBody {
		return nil
	}

	var decoder func(io.Reader) (io.Reader, error)
	switch strings.ToLower(strings.TrimSpace(res.Header.Get("Content-Encoding"))) {
	case "gzip":
		decoder = func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
	case "br":
		decoder = func(r io.Reader) (io.Reader, error) { return brotli.NewReader(r), nil }
	default:
		return nil
	}

	defer res.Body.Close()
	reader, err := decoder(res.Body)
	if err != nil {
		return fmt.Errorf("creating %s reader: %w", res.Header.Get("Content-Encoding"), err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading %s content: %w", res.Header.Get("Content-Encoding"), err)
	}

	res.Body = io.NopCloser(bytes.NewReader(decoded))
	res.ContentLength = int64(len(decoded))
	res.Header.Set("Content-Length", strconv.Itoa(len(decoded)))
	res.Header.Del("Content-Encoding")
	res.Uncompressed = true
	return nil
}
