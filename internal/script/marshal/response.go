package marshal

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/relayhq/relay/internal/script/state"
)

// RawResponse is what a network executor hands back. The body may be a
// live stream; it never survives past ToSerializedResponse.
type RawResponse struct {
	StatusCode int
	Status     string
	Headers    []state.Header
	Body       io.ReadCloser
}

// FromHTTPResponse adapts a standard response into a RawResponse.
// Header keys are emitted in sorted order so runs are deterministic.
func FromHTTPResponse(resp *http.Response) *RawResponse {
	raw := &RawResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       resp.Body,
	}
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			raw.Headers = append(raw.Headers, state.Header{Name: k, Value: v})
		}
	}
	return raw
}

// SerializedResponse is the boundary-safe form of a response: plain
// status, ordered headers and a fully materialized body. Immutable once
// built.
type SerializedResponse struct {
	Status     int            `json:"status"`
	StatusText string         `json:"status_text"`
	Headers    []state.Header `json:"headers"`
	BodyBytes  []byte         `json:"body"`
}

// ToSerializedResponse drains the raw body into memory and returns a
// self-contained response. It never fails: a broken or half-sent body
// yields whatever bytes were read, and decode problems fall back to the
// raw payload.
func ToSerializedResponse(raw *RawResponse) *SerializedResponse {
	sr := &SerializedResponse{
		Status:     raw.StatusCode,
		StatusText: statusText(raw),
		Headers:    make([]state.Header, len(raw.Headers)),
	}
	copy(sr.Headers, raw.Headers)

	if raw.Body != nil {
		body, _ := io.ReadAll(raw.Body)
		raw.Body.Close()
		sr.BodyBytes = decodeBody(body, sr.Header("Content-Encoding"))
	} else {
		sr.BodyBytes = []byte{}
	}
	return sr
}

func statusText(raw *RawResponse) string {
	if raw.Status != "" {
		// "200 OK" -> "OK"
		if i := strings.IndexByte(raw.Status, ' '); i >= 0 {
			return raw.Status[i+1:]
		}
		return raw.Status
	}
	return http.StatusText(raw.StatusCode)
}

// decodeBody undoes a content encoding the executor did not strip.
// Unknown encodings and decode failures return the input unchanged.
func decodeBody(body []byte, encoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer gr.Close()
		decoded, err := io.ReadAll(gr)
		if err != nil {
			return body
		}
		return decoded
	case "deflate":
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		decoded, err := io.ReadAll(fr)
		if err != nil {
			return body
		}
		return decoded
	}
	return body
}

// Header returns the first header value matching name, case-insensitively
func (r *SerializedResponse) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Text returns the body decoded as a string
func (r *SerializedResponse) Text() string {
	return string(r.BodyBytes)
}

// JSON parses the body. A malformed or empty body is a parse error, not
// a crash.
func (r *SerializedResponse) JSON() (interface{}, error) {
	var out interface{}
	if err := sonic.Unmarshal(r.BodyBytes, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Bytes returns an independent copy of the body
func (r *SerializedResponse) Bytes() []byte {
	out := make([]byte, len(r.BodyBytes))
	copy(out, r.BodyBytes)
	return out
}
