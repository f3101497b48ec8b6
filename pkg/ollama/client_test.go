package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantText  string
		wantErr   string
		wantCode  int
		wantNoRsp bool
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"model":"llama2","response":"3,7","done":true}`,
			wantText: "3,7",
		},
		{
			name:     "model not found",
			status:   http.StatusNotFound,
			body:     `{"error":"model 'nope' not found"}`,
			wantErr:  "unexpected status 404",
			wantCode: http.StatusNotFound,
		},
		{
			name:      "missing response field",
			status:    http.StatusOK,
			body:      `{"model":"llama2","done":true}`,
			wantNoRsp: true,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"response": "ok", "done": tru`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/generate", r.URL.Path)

				var req GenerateRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "llama2", req.Model)
				assert.Equal(t, "find go", req.Prompt)
				assert.False(t, req.Stream)

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			resp, err := NewClient(srv.URL+"/").Generate(context.Background(), GenerateRequest{Prompt: "find go"})
			switch {
			case tt.wantNoRsp:
				assert.ErrorIs(t, err, ErrMissingResponse)
			case tt.wantErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.wantCode != 0 {
					var se *StatusError
					require.True(t, errors.As(err, &se))
					assert.Equal(t, tt.wantCode, se.Code)
					assert.Contains(t, se.Body, "not found")
				}
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantText, resp.Response)
			}
		})
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama2:latest","size":3826793677},{"name":"mistral:7b"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	models, err := NewClient(srv.URL).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama2:latest", models[0].Name)
	assert.Equal(t, int64(3826793677), models[0].Size)
}

func TestGenerate_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).Generate(ctx, GenerateRequest{Prompt: "x"})
	require.Error(t, err)
}
