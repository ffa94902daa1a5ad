package httpclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/torosent/authrelay/internal/response"
)

// Get issues a GET with query params.
func (c *Client) Get(ctx context.Context, target string, params url.Values) (*response.Raw, error) {
	return c.Request(ctx, RequestConfig{Method: http.MethodGet, URL: target, Params: params}, true)
}

// Post sends data as the JSON body.
func (c *Client) Post(ctx context.Context, target string, data any) (*response.Raw, error) {
	return c.Request(ctx, RequestConfig{Method: http.MethodPost, URL: target, Data: data}, true)
}

// PostWithFile sends a multipart form. The token also travels in the upload token header.
func (c *Client) PostWithFile(ctx context.Context, target string, files []FilePart, form map[string]string) (*response.Raw, error) {
	return c.Request(ctx, RequestConfig{Method: http.MethodPost, URL: target, Files: files, Form: form}, true)
}

// Put sends data as the JSON body with query params.
func (c *Client) Put(ctx context.Context, target string, data any, params url.Values) (*response.Raw, error) {
	return c.Request(ctx, RequestConfig{Method: http.MethodPut, URL: target, Data: data, Params: params}, true)
}

// Delete issues a DELETE with query params.
func (c *Client) Delete(ctx context.Context, target string, params url.Values) (*response.Raw, error) {
	return c.Request(ctx, RequestConfig{Method: http.MethodDelete, URL: target, Params: params}, true)
}

// Do runs Request and decodes the envelope data into T. A decode failure is reported
// as a CodeDecodeError envelope rather than an error.
func Do[T any](ctx context.Context, c *Client, cfg RequestConfig, checkOut bool) (*response.Response[T], error) {
	raw, err := c.Request(ctx, cfg, checkOut)
	if err != nil {
		return nil, err
	}
	if !raw.OK {
		return &response.Response[T]{Code: raw.Code, Message: raw.Message, Status: raw.Status}, nil
	}
	out, err := response.Decode[T](raw)
	if err != nil {
		return &response.Response[T]{
			Code:    response.CodeDecodeError,
			Message: err.Error(),
			Status:  raw.Status,
		}, nil
	}
	return out, nil
}
