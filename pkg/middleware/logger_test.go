package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/upload-lab/pkg/middleware"
)

func TestLogger_LogsAfterHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if buf.Len() != 0 {
			t.Error("logged before handler ran")
		}
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodPatch, "/uploads/abc?x=1", nil)
	w := httptest.NewRecorder()

	middleware.Logger(logger)(handler).ServeHTTP(w, req)

	out := buf.String()
	for _, want := range []string{"msg=request", "method=PATCH", "uri=\"/uploads/abc?x=1\"", "status=418", "duration="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}
