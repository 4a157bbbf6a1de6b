// Package capture buffers a downstream handler's response so an interceptor
// can inspect the status, headers and body before anything reaches the client.
package capture

import (
	"bytes"
	"net/http"
)

// Recorder is an http.ResponseWriter that keeps the whole response in memory.
type Recorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

// NewRecorder returns an empty Recorder with status 200.
func NewRecorder() *Recorder {
	return &Recorder{
		header: make(http.Header),
		status: http.StatusOK,
	}
}

// Header implements http.ResponseWriter.
func (r *Recorder) Header() http.Header {
	return r.header
}

// WriteHeader implements http.ResponseWriter. Only the first call counts.
func (r *Recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

// Write implements http.ResponseWriter.
func (r *Recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}

// Status returns the recorded status code.
func (r *Recorder) Status() int {
	return r.status
}

// Body returns the recorded body bytes.
func (r *Recorder) Body() []byte {
	return r.body.Bytes()
}

// IsError reports whether the recorded status is a 4xx or 5xx.
func (r *Recorder) IsError() bool {
	return r.status >= 400
}

// WriteTo replays the recorded response onto w unchanged.
func (r *Recorder) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.header {
		dst[k] = append([]string(nil), v...)
	}
	w.WriteHeader(r.status)
	_, err := w.Write(r.body.Bytes())
	return err
}
