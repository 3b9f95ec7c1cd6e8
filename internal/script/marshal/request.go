package marshal

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"

	"github.com/relayhq/relay/internal/script/state"
)

// Body kinds for RequestDescriptor
const (
	BodyNone      = "none"
	BodyText      = "text"
	BodyBinary    = "binary"
	BodyForm      = "form"
	BodyMultipart = "multipart"
	BodyOpaque    = "opaque"
)

// BodyPayload is the tagged body representation consumed by the network
// executor. Content is always fully materialized.
type BodyPayload struct {
	Kind      string `json:"kind"`
	Content   []byte `json:"content"`
	MediaType string `json:"media_type"`
}

// RequestDescriptor is the boundary-safe form of an outgoing request
type RequestDescriptor struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers []state.Header `json:"headers"`
	Body    BodyPayload    `json:"body"`
}

// Header returns the first header value matching name, case-insensitively
func (d *RequestDescriptor) Header(name string) string {
	for _, h := range d.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SetHeader replaces the first header matching name or appends a new one
func (d *RequestDescriptor) SetHeader(name, value string) {
	for i := range d.Headers {
		if strings.EqualFold(d.Headers[i].Name, name) {
			d.Headers[i].Value = value
			return
		}
	}
	d.Headers = append(d.Headers, state.Header{Name: name, Value: value})
}

// ToNetworkRequest normalizes guest-supplied fetch options into one
// descriptor. Unrecognized body shapes pass through as opaque content
// with a sniffed media type rather than being dropped.
func ToNetworkRequest(rawURL string, options map[string]interface{}) (*RequestDescriptor, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	desc := &RequestDescriptor{
		Method: "GET",
		URL:    rawURL,
		Body:   BodyPayload{Kind: BodyNone},
	}
	if options == nil {
		return desc, nil
	}

	if m, ok := options["method"].(string); ok && m != "" {
		desc.Method = strings.ToUpper(m)
	}
	if h, ok := options["headers"]; ok {
		desc.Headers = normalizeHeaders(h)
	}
	if body, ok := options["body"]; ok && body != nil {
		payload, err := normalizeBody(body)
		if err != nil {
			return nil, err
		}
		desc.Body = payload
		if payload.MediaType != "" && desc.Header("Content-Type") == "" {
			desc.SetHeader("Content-Type", payload.MediaType)
		}
	}
	return desc, nil
}

// normalizeHeaders accepts a map or a list of [name, value] pairs.
// Map keys are sorted so the descriptor is deterministic.
func normalizeHeaders(v interface{}) []state.Header {
	var out []state.Header
	switch h := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(h))
		for k := range h {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, state.Header{Name: k, Value: coerceString(h[k])})
		}
	case []interface{}:
		for _, item := range h {
			pair, ok := item.([]interface{})
			if !ok || len(pair) < 2 {
				continue
			}
			out = append(out, state.Header{Name: coerceString(pair[0]), Value: coerceString(pair[1])})
		}
	}
	return out
}

func normalizeBody(body interface{}) (BodyPayload, error) {
	switch b := body.(type) {
	case string:
		return BodyPayload{Kind: BodyText, Content: []byte(b), MediaType: "text/plain"}, nil
	case []byte:
		return BodyPayload{Kind: BodyBinary, Content: b, MediaType: sniffMediaType(b)}, nil
	case map[string]interface{}:
		if form, ok := b["form"].(map[string]interface{}); ok {
			return encodeForm(form), nil
		}
		if parts, ok := b["multipart"].(map[string]interface{}); ok {
			return encodeMultipart(parts)
		}
		// Plain object: treat as a JSON payload the way fetch callers expect
		return encodeJSON(b)
	case []interface{}:
		return encodeJSON(b)
	default:
		return encodeOpaque(b)
	}
}

func encodeJSON(v interface{}) (BodyPayload, error) {
	content, err := sonic.Marshal(v)
	if err != nil {
		return BodyPayload{}, fmt.Errorf("encoding json body: %w", err)
	}
	return BodyPayload{Kind: BodyText, Content: content, MediaType: "application/json"}, nil
}

func encodeForm(form map[string]interface{}) BodyPayload {
	values := url.Values{}
	for k, v := range form {
		values.Set(k, coerceString(v))
	}
	return BodyPayload{
		Kind:      BodyForm,
		Content:   []byte(values.Encode()),
		MediaType: "application/x-www-form-urlencoded",
	}
}

func encodeMultipart(parts map[string]interface{}) (BodyPayload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fw, err := w.CreateFormField(k)
		if err != nil {
			return BodyPayload{}, fmt.Errorf("multipart field %q: %w", k, err)
		}
		if _, err := fw.Write([]byte(coerceString(parts[k]))); err != nil {
			return BodyPayload{}, fmt.Errorf("multipart field %q: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return BodyPayload{}, err
	}
	return BodyPayload{
		Kind:      BodyMultipart,
		Content:   buf.Bytes(),
		MediaType: w.FormDataContentType(),
	}, nil
}

// encodeOpaque keeps an unrecognized body shape instead of dropping it
func encodeOpaque(v interface{}) (BodyPayload, error) {
	content := []byte(coerceString(v))
	return BodyPayload{
		Kind:      BodyOpaque,
		Content:   content,
		MediaType: sniffMediaType(content),
	}, nil
}

func sniffMediaType(content []byte) string {
	if len(content) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(content).String()
}

func coerceString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
