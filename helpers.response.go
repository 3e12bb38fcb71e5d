package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// StatusClientClosedRequest is the Nginx non standard status code 499.
const StatusClientClosedRequest = 499

// CustomResponseWriter is a wrapper for http.ResponseWriter. It is
// used to record response details like status code and body size.
type CustomResponseWriter struct {
	http.ResponseWriter
	code  int
	bytes int
	wrote bool
}

// NewCustomResponseWriter provides CustomResponseWriter with 200 as status code.
func NewCustomResponseWriter(rw http.ResponseWriter) *CustomResponseWriter {
	return &CustomResponseWriter{
		ResponseWriter: rw,
		code:           http.StatusOK,
	}
}

// WriteHeader implements http.WriteHeader interface.
func (cw *CustomResponseWriter) WriteHeader(code int) {
	if !cw.wrote {
		cw.code = code
		cw.wrote = true
		cw.ResponseWriter.WriteHeader(code)
	}
}

// Write implements http.Write interface.
func (cw *CustomResponseWriter) Write(bytes []byte) (int, error) {
	if !cw.wrote {
		cw.WriteHeader(cw.code)
	}

	n, err := cw.ResponseWriter.Write(bytes)
	cw.bytes += n
	return n, err
}

// Status returns the written status code.
func (cw *CustomResponseWriter) Status() int {
	return cw.code
}

// Bytes returns bytes written as response body.
func (cw *CustomResponseWriter) Bytes() int {
	return cw.bytes
}

// Unwrap returns native response writer and used by
// the http.ResponseController during its operation.
func (cw *CustomResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// ErrorDetail is the body sent when a request could not be processed.
// Detail holds either a message or the list of violations.
type ErrorDetail struct {
	Detail interface{} `json:"detail"`
}

// NewErrorDetail provides an error body with the given detail.
func NewErrorDetail(detail interface{}) *ErrorDetail {
	return &ErrorDetail{Detail: detail}
}

// WriteErrorResponse is used to send error response to client. In case the client closes the request,
// it records the Nginx non standard status code 499 (Client Closed Request). In case of request processing
// timeout we set the status code to 504, the timeout handler already answered the client.
func WriteErrorResponse(ctx context.Context, w http.ResponseWriter, status int, errResp *ErrorDetail) error {
	return writeJSON(ctx, w, status, errResp)
}

// WriteResponse is used to send success api response to client. It sets the status code to 499
// in case client cancelled the request, and to 504 if the request processing timed out.
func WriteResponse(ctx context.Context, w http.ResponseWriter, status int, data interface{}) error {
	return writeJSON(ctx, w, status, data)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, data interface{}) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusGatewayTimeout)
		} else {
			w.WriteHeader(StatusClientClosedRequest)
		}
		return fmt.Errorf("response not sent: %w", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
