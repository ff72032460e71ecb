package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/promptsync/internal/logging"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		status  int
		want    string
		wantLog bool
	}{
		{"ok request", "/api/runs", http.StatusOK, "level=INFO", true},
		{"server error", "/api/runs/kv", http.StatusBadGateway, "level=ERROR", true},
		{"health probe at info", "/healthz", http.StatusOK, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(logging.New(&buf, "info", "text"))
			defer slog.SetDefault(prev)

			h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			out := buf.String()
			if !tt.wantLog {
				if out != "" {
					t.Errorf("log = %q, want nothing at info level", out)
				}
				return
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("log = %q, want %s", out, tt.want)
			}
			if !strings.Contains(out, "path="+tt.path) {
				t.Errorf("log = %q, want path=%s", out, tt.path)
			}
		})
	}
}
