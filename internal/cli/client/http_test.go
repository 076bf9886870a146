package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/sopbot/internal/api/handlers"
	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	return cmd, out
}

func TestAPIClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeData(w, http.StatusOK, handlers.HealthResponse{Status: "ok"})
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig("secret", srv.URL+"/")
	_, err := api.Get("/health")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestAPIClient_OmitsAuthorizationWithoutToken(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		writeData(w, http.StatusOK, handlers.HealthResponse{Status: "ok"})
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/health")
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestAPIClient_ReturnsAPIError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		message string
	}{
		{
			name: "json error envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeErr(w, http.StatusUnauthorized, "invalid api token")
			},
			status:  http.StatusUnauthorized,
			message: "invalid api token",
		},
		{
			name: "plain text body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			status:  http.StatusBadGateway,
			message: "bad gateway\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewAPIClientWithConfig("", srv.URL).Get("/index")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestRunAsk(t *testing.T) {
	var gotQuestion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/answer", r.URL.Path)
		var req handlers.AnswerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotQuestion = req.Question
		writeData(w, http.StatusOK, handlers.AnswerResponse{
			Answer:  "The finance lead approves refunds above 500 EUR.",
			Outcome: domain.OutcomeAnswered,
			Sources: []string{"finance/refunds.docx"},
		})
	}))
	defer srv.Close()

	cmd, out := testCmd()
	err := runAsk(cmd, NewAPIClientWithConfig("", srv.URL), "Who approves refunds?", true, false)
	require.NoError(t, err)

	assert.Equal(t, "Who approves refunds?", gotQuestion)
	assert.Contains(t, out.String(), "The finance lead approves refunds above 500 EUR.")
	assert.Contains(t, out.String(), "Sources:")
	assert.Contains(t, out.String(), "finance/refunds.docx")
}

func TestRunAsk_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, handlers.AnswerResponse{Answer: "Hello!", Outcome: domain.OutcomeGreeting, Sources: []string{}})
	}))
	defer srv.Close()

	cmd, out := testCmd()
	require.NoError(t, runAsk(cmd, NewAPIClientWithConfig("", srv.URL), "hi", false, true))

	var got handlers.AnswerResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, domain.OutcomeGreeting, got.Outcome)
}

func TestRunIndex(t *testing.T) {
	var gotReq handlers.IndexRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		writeData(w, http.StatusOK, domain.BuildReport{
			Folder:    "/srv/sops",
			Source:    domain.IndexSourceBuilt,
			BuildID:   "b-1",
			Documents: 3,
			Chunks:    12,
			Skipped:   []domain.SkippedFile{{Path: "broken.docx", Reason: "not a zip archive"}},
		})
	}))
	defer srv.Close()

	cmd, out := testCmd()
	err := runIndex(cmd, NewAPIClientWithConfig("", srv.URL), "/srv/sops", true, false)
	require.NoError(t, err)

	assert.Equal(t, "/srv/sops", gotReq.Folder)
	assert.True(t, gotReq.Rebuild)
	assert.Contains(t, out.String(), "Index built for /srv/sops")
	assert.Contains(t, out.String(), "Chunks:    12")
	assert.Contains(t, out.String(), "broken.docx: not a zip archive")
}

func TestRunIndex_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "document folder not found")
	}))
	defer srv.Close()

	cmd, _ := testCmd()
	err := runIndex(cmd, NewAPIClientWithConfig("", srv.URL), "/missing", false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document folder not found")
}

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name     string
		indexed  bool
		contains []string
	}{
		{
			name:     "no index",
			contains: []string{"Server: ok", "Index:  none loaded"},
		},
		{
			name:     "active index",
			indexed:  true,
			contains: []string{"Index:  /srv/sops", "text-embedding-3-small (1536 dimensions)", "Chunks:    40"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/health":
					writeData(w, http.StatusOK, handlers.HealthResponse{Status: "ok", IndexReady: tt.indexed})
				case "/index":
					if !tt.indexed {
						writeErr(w, http.StatusNotFound, "persisted index not found")
						return
					}
					writeData(w, http.StatusOK, handlers.IndexStatusResponse{
						Folder: "/srv/sops",
						Manifest: vectorindex.Manifest{
							BuildID:        "b-2",
							EmbeddingModel: "text-embedding-3-small",
							Dimension:      1536,
							ChunkCount:     40,
							DocumentCount:  9,
						},
					})
				}
			}))
			defer srv.Close()

			cmd, out := testCmd()
			require.NoError(t, runStatus(cmd, NewAPIClientWithConfig("", srv.URL), false))
			for _, s := range tt.contains {
				assert.True(t, strings.Contains(out.String(), s), "missing %q in %q", s, out.String())
			}
		})
	}
}
