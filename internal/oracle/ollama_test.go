package oracle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaumgartner/flipradar/internal/oracle"
)

func TestOllamaBackend_Name(t *testing.T) {
	t.Parallel()
	b := oracle.NewOllamaBackend("http://localhost:11434", "llama3.2")
	assert.Equal(t, "ollama", b.Name())
}

func TestOllamaBackend_Generate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		req        oracle.GenerateRequest
		wantErr    bool
		wantErrMsg string
		wantResp   string
	}{
		{
			name: "successful generation",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"model":"llama3.2","response":"{\"new_price_chf\":60}"}`))
			},
			req: oracle.GenerateRequest{
				Prompt:      "estimate this",
				Temperature: 0.1,
				MaxTokens:   512,
			},
			wantResp: `{"new_price_chf":60}`,
		},
		{
			name: "json format passed through",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"model":"llama3.2","response":"{\"key\":\"val\"}"}`))
			},
			req: oracle.GenerateRequest{
				Prompt:      "estimate",
				Format:      "json",
				Temperature: 0.1,
				MaxTokens:   512,
			},
			wantResp: `{"key":"val"}`,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`internal error`))
			},
			req:        oracle.GenerateRequest{Prompt: "test"},
			wantErr:    true,
			wantErrMsg: "ollama error (status 500)",
		},
		{
			name: "invalid JSON response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`not json`))
			},
			req:        oracle.GenerateRequest{Prompt: "test"},
			wantErr:    true,
			wantErrMsg: "parsing ollama",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.WriteHeader(http.StatusOK)
			},
			req:        oracle.GenerateRequest{Prompt: "test"},
			wantErr:    true,
			wantErrMsg: "calling ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			clientTimeout := 5 * time.Second
			if tt.name == "timeout" {
				clientTimeout = 50 * time.Millisecond
			}

			backend := oracle.NewOllamaBackend(
				srv.URL,
				"llama3.2",
				oracle.WithOllamaHTTPClient(&http.Client{Timeout: clientTimeout}),
			)

			resp, err := backend.Generate(context.Background(), tt.req)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantResp, resp.Content)
			assert.Equal(t, "llama3.2", resp.Model)
		})
	}
}
