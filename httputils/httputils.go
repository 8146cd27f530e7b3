package httputils // import "github.com/xuuxu-xu/stripe-integration/httputils"

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/xuuxu-xu/stripe-integration/logger"
)

// maxBodyBytes caps the size of request bodies we are willing to read.
const maxBodyBytes = int64(65536)

// ParseRequest reads the body of the request and unmarshals it into `v`. An
// empty body leaves `v` untouched, so missing fields simply keep their zero
// values. A body that is not valid JSON is answered with a 400.
func ParseRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Malformed body", http.StatusBadRequest)
		return fmt.Errorf("error getting body from request on %s to URL %s: %w", r.Host, r.URL, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		http.Error(w, "Malformed body", http.StatusBadRequest)
		return fmt.Errorf("could not unmarshal the body of a request sent on %s to URL %s: %w", r.Host, r.URL, err)
	}

	return nil
}

// VerifyRequestType verifies the type (method) of a request. A mismatch is a
// client mistake, so it is logged as a warning.
func VerifyRequestType(w http.ResponseWriter, r *http.Request, method string) error {
	if r == nil {
		err := fmt.Errorf("received a nil request expecting to be type %s", method)
		logger.Warning(err)

		http.Error(w, fmt.Sprintf("Bad request. Expected %s, got nil", method), http.StatusBadRequest)

		return err
	}

	if r.Method != method {
		err := fmt.Errorf("received a request on %s to URL %s of type %s, but it should have been type %s", r.Host, r.URL, r.Method, method)
		logger.Warning(err)

		http.Error(w, fmt.Sprintf("Bad request type. Expected %s, got %s", method, r.Method), http.StatusBadRequest)

		return err
	}
	return nil
}

// EnableCORS is a middleware that sets the Access control header to accept requests from all origins.
func EnableCORS(f http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		rw.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, X-Requested-With, X-Request-ID")
		rw.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

		if r.Method == http.MethodOptions {
			rw.WriteHeader(http.StatusNoContent)
			return
		}

		f(rw, r)
	}
}

// SendJSON marshals `v` and writes it with the given status code.
func SendJSON(w http.ResponseWriter, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("error marshalling a %v HTTP response body: %s", status, err)
		SendText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// SendText writes a plain text body with the given status code.
func SendText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// StatusRecorder wraps a ResponseWriter and remembers the status code written
// by the handler, so middleware can inspect it afterwards.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// NewStatusRecorder returns a StatusRecorder defaulting to 200, which is what
// net/http sends when a handler never calls WriteHeader.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records the status code before delegating.
func (s *StatusRecorder) WriteHeader(status int) {
	s.Status = status
	s.ResponseWriter.WriteHeader(status)
}
