// Package response normalizes HTTP outcomes into a single result envelope.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tidwall/gjson"
)

// Result codes for failures that never reached an HTTP status.
const (
	CodeNetworkError = -1
	CodeCanceled     = -2
	CodeDecodeError  = -3
	CodeTimeout      = http.StatusRequestTimeout
)

// Response is the normalized outcome of a request. Code is the server's envelope
// code when it sends one, otherwise the HTTP status or one of the Code* constants.
type Response[T any] struct {
	Code    int    `json:"code" yaml:"code"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Status  int    `json:"status" yaml:"status"`
	OK      bool   `json:"ok" yaml:"ok"`
	Data    T      `json:"data" yaml:"data"`
}

// Raw keeps the data undecoded.
type Raw = Response[json.RawMessage]

// FromHTTP normalizes a received HTTP response.
func FromHTTP(status int, body []byte) *Raw {
	raw := &Raw{
		Code:   status,
		Status: status,
		OK:     status >= 200 && status < 300,
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		raw.Data = wrapBody(body)
		if !raw.OK {
			raw.Message = http.StatusText(status)
		}
		return raw
	}

	parsed := gjson.ParseBytes(body)
	if code := parsed.Get("code"); code.Type == gjson.Number {
		raw.Code = int(code.Int())
	}
	switch {
	case parsed.Get("message").Type == gjson.String:
		raw.Message = parsed.Get("message").String()
	case parsed.Get("msg").Type == gjson.String:
		raw.Message = parsed.Get("msg").String()
	case !raw.OK:
		raw.Message = http.StatusText(status)
	}
	if data := parsed.Get("data"); data.Exists() {
		raw.Data = json.RawMessage(data.Raw)
	} else {
		raw.Data = json.RawMessage(body)
	}
	return raw
}

// FromError normalizes a transport failure.
func FromError(err error) *Raw {
	raw := &Raw{Code: CodeNetworkError, Data: json.RawMessage("null")}
	if err == nil {
		return raw
	}
	raw.Message = err.Error()

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		raw.Code = CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		raw.Code = CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		raw.Code = CodeTimeout
	}
	return raw
}

// Decode converts the raw data into T. Absent or null data leaves T at its zero value.
func Decode[T any](raw *Raw) (*Response[T], error) {
	if raw == nil {
		return nil, errors.New("response is nil")
	}
	out := &Response[T]{
		Code:    raw.Code,
		Message: raw.Message,
		Status:  raw.Status,
		OK:      raw.OK,
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw.Data, &out.Data); err != nil {
		return out, fmt.Errorf("decode response data: %w", err)
	}
	return out, nil
}

// Field returns the value at a gjson path inside the data.
func (r *Response[T]) Field(path string) gjson.Result {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(data, path)
}

func wrapBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return json.RawMessage("null")
	}
	if gjson.ValidBytes(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage("null")
	}
	return quoted
}
