package message

import (
	"io"
	"net/http"

	"github.com/hupe1980/httpflow/core"
)

// Factory implements core.MessageFactory using this package's Response type.
type Factory struct{}

// NewFactory returns the default message factory.
func NewFactory() *Factory { return &Factory{} }

// NewResponse turns parsed transport bytes into a core.Response.
func (f *Factory) NewResponse(statusCode int, header http.Header, body io.ReadCloser) core.Response {
	return NewResponse(statusCode, header, body)
}
