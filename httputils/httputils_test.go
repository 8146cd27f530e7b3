package httputils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuuxu-xu/stripe-integration/logger"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testRequest struct {
	SessionID string `json:"sessionId"`
	PayerID   string `json:"payerId"`
}

func TestParseRequest(t *testing.T) {
	var tests = []struct {
		name     string
		jsonBody string
		expected testRequest
		err      bool
	}{
		{"Valid request", `{"sessionId": "cs_test_1", "payerId": "a1"}`, testRequest{SessionID: "cs_test_1", PayerID: "a1"}, false},
		{"Missing fields", `{"sessionId": "cs_test_1"}`, testRequest{SessionID: "cs_test_1"}, false},
		{"Unknown fields", `{"foo": "bar"}`, testRequest{}, false},
		{"Empty body", ``, testRequest{}, false},
		{"Malformed body", `{"sessionId": `, testRequest{}, true},
		{"Wrong field type", `{"sessionId": 12}`, testRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "https://localhost", strings.NewReader(tt.jsonBody))

			var got testRequest
			err := ParseRequest(w, r, &got)
			if tt.err {
				if err == nil {
					t.Fatalf("expected an error, got nil")
				}
				if w.Code != http.StatusBadRequest {
					t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
				}
				return
			}

			if err != nil {
				t.Fatalf("did not expect error, got: %s", err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("parsed request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerifyRequestType(t *testing.T) {
	methodsToTest := []string{
		http.MethodHead,
		http.MethodOptions,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
	}

	for _, method := range methodsToTest {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(method, "https://localhost", nil)

			err := VerifyRequestType(w, r, http.MethodPost)
			if method == http.MethodPost {
				if err != nil {
					t.Errorf("did not expect error, got: %s", err)
				}
				return
			}

			if err == nil {
				t.Errorf("expected an error for method %s", method)
			}
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

// TestVerifyRequestTypeLogsWarning ensures a wrong method, which is a client
// mistake, is not reported as an error.
func TestVerifyRequestTypeLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(logger.ReplaceCore(core))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "https://localhost", nil)
	if err := VerifyRequestType(w, r, http.MethodPost); err == nil {
		t.Fatal("expected an error for method GET")
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected a single log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("expected a warning, got %s", entries[0].Level)
	}
}

func TestEnableCORS(t *testing.T) {
	corsHandler := EnableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(corsHandler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("did not expect error, got: %s", err)
	}
	resp.Body.Close()

	wantHeaders := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Origin, Accept, Content-Type, X-Requested-With, X-Request-ID",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}

	// Check that all CORS headers were added to the response
	for k, v := range wantHeaders {
		if header := resp.Header.Get(k); header != v {
			t.Errorf("header %v: expected %q, got %q", k, v, header)
		}
	}

	// Preflight requests never reach the wrapped handler
	req, _ := http.NewRequest(http.MethodOptions, srv.URL, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("did not expect error, got: %s", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected preflight status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
}

func TestSendJSON(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{"https://pay.example/cs_1"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["url"] != "https://pay.example/cs_1" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSendText(t *testing.T) {
	w := httptest.NewRecorder()
	SendText(w, http.StatusBadRequest, "PaymentIntent not found")

	res := w.Result()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, res.StatusCode)
	}
	if string(body) != "PaymentIntent not found" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewStatusRecorder(w)
	if rec.Status != http.StatusOK {
		t.Errorf("expected default status %d, got %d", http.StatusOK, rec.Status)
	}

	rec.WriteHeader(http.StatusTooManyRequests)
	if rec.Status != http.StatusTooManyRequests || w.Code != http.StatusTooManyRequests {
		t.Errorf("status was not recorded, got %d / %d", rec.Status, w.Code)
	}
}
