package message

import (
	"io"
	"net/http"
	"strings"
)

// Response is the default core.Response implementation.
type Response struct {
	statusCode   int
	header       http.Header
	body         io.ReadCloser
	effectiveURL string
}

// NewResponse builds a response. A nil body is replaced with an empty one so
// callers can always read and close it.
func NewResponse(statusCode int, header http.Header, body io.ReadCloser) *Response {
	if header == nil {
		header = http.Header{}
	}
	if body == nil {
		body = io.NopCloser(strings.NewReader(""))
	}
	return &Response{statusCode: statusCode, header: header, body: body}
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Header returns the response header collection.
func (r *Response) Header() http.Header { return r.header }

// Body returns the response body stream. The caller owns closing it.
func (r *Response) Body() io.ReadCloser { return r.body }

// EffectiveURL returns the URL that produced this response.
func (r *Response) EffectiveURL() string { return r.effectiveURL }

// SetEffectiveURL records the URL that produced this response.
func (r *Response) SetEffectiveURL(url string) { r.effectiveURL = url }
