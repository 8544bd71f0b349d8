package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
	"snnap-backend/internal/relay"
	"snnap-backend/internal/stats"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(cfg *config.Config) (*gin.Engine, *stats.Collector) {
	gin.SetMode(gin.TestMode)

	collector := stats.NewCollector()
	aiHandler := NewAIHandler(relay.NewService(cfg, collector), cfg)
	statsHandler := NewStatsHandler(collector)

	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
	}))
	router.POST("/api/ai/stream", aiHandler.StreamGenerate)
	router.GET("/api/stats", statsHandler.Get)
	return router, collector
}

func testConfig(openaiBaseURL string) *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			OpenAI: config.ProviderConfig{BaseURL: openaiBaseURL, Model: "gpt-4o-mini"},
		},
		Stream: config.StreamConfig{Timeout: 10 * time.Second},
	}
}

// sseData extracts the payload of every `data:` line in emission order.
func sseData(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func deltaContent(t *testing.T, payload string) string {
	t.Helper()
	var frame model.StreamFrame
	require.NoError(t, json.Unmarshal([]byte(payload), &frame))
	require.Len(t, frame.Choices, 1)
	return frame.Choices[0].Delta.Content
}

func TestStreamGenerateEndToEnd(t *testing.T) {
	deltas := []string{
		"Criando sua ",
		"pagina... TITLE: Teste\nSLUG: teste\n",
		"<!DOCTYPE html><html><body>Hi</body></html>",
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.True(t, req.Stream)
		// System prompt prepended to the single user turn.
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk, _ := json.Marshal(model.NewStreamFrame(d))
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	router, collector := newTestRouter(testConfig(upstream.URL + "/v1"))

	body := `{"messages":[{"role":"user","content":"crie uma pagina simples"}],"apiKeys":{"openai":"sk-test"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	payloads := sseData(rec.Body.String())
	require.NotEmpty(t, payloads)

	assert.Equal(t, "[DONE]", payloads[len(payloads)-1])

	var contents []string
	for _, p := range payloads[:len(payloads)-1] {
		contents = append(contents, deltaContent(t, p))
	}

	assert.Equal(t, []string{
		"Criando sua ",
		"pagina... TITLE: Teste\nSLUG: teste\n",
		relay.HTMLStartSentinel,
		"<!DOCTYPE html><html><body>Hi</body></html>",
		relay.HTMLEndSentinel,
	}, contents)

	usage := collector.Snapshot()
	assert.Equal(t, int64(1), usage["openai"].Requests)
	assert.Equal(t, int64(5), usage["openai"].Frames)
}

func TestStreamGenerateUpstreamAuthError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer upstream.Close()

	router, _ := newTestRouter(testConfig(upstream.URL + "/v1"))

	body := `{"messages":[{"role":"user","content":"oi"}],"apiKeys":{"openai":"bad"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	// No stream is opened: a single JSON error body with the mapped status.
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "Token da API inválido")
	assert.NotContains(t, rec.Body.String(), "data:")
}

func TestStreamGenerateNoProviderConfigured(t *testing.T) {
	router, _ := newTestRouter(testConfig("http://unused"))

	body := `{"messages":[{"role":"user","content":"oi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Nenhuma API configurada", resp["error"])
}

func TestStreamGenerateRejectsMissingMessages(t *testing.T) {
	router, _ := newTestRouter(testConfig("http://unused"))

	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(testConfig("http://unused"))

	req := httptest.NewRequest(http.MethodOptions, "/api/ai/stream", nil)
	req.Header.Set("Origin", "https://app.snnap.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Body.String())
}
