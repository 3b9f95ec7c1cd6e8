package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/relay/internal/config"
	"github.com/relayhq/relay/internal/logging"
	"github.com/relayhq/relay/internal/script/state"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.Timeout = 2 * time.Second
	return NewServer(cfg, logging.NewNop())
}

func doRun(t *testing.T, s *Server, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := sonic.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relay_script_runs_active")
}

func TestRunRejectsMissingSource(t *testing.T) {
	s := newTestServer(t)
	rec := doRun(t, s, map[string]interface{}{"phase": "test"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunTestPhase(t *testing.T) {
	s := newTestServer(t)
	rec := doRun(t, s, RunRequest{
		Source: `
			test('status', function() { assert(response.status, 'eq', 200); });
			test('body', async function() {
				const j = await response.json();
				assert(j.ok, 'eq', true);
			});
		`,
		Phase: state.PhaseTest,
		Response: &ResponsePayload{
			Status:  200,
			Headers: []state.Header{{Name: "Content-Type", Value: "application/json"}},
			Body:    `{"ok":true}`,
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result state.RunResult
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Tests, 2)
	for _, tt := range result.Tests {
		require.Len(t, tt.Outcomes, 1)
		assert.Equal(t, state.StatusPass, tt.Outcomes[0].Status, tt.Outcomes[0].Message)
	}
}

func TestRunPreRequestPhase(t *testing.T) {
	s := newTestServer(t)
	rec := doRun(t, s, RunRequest{
		Source: `request.headers.push({name: 'X-Signed', value: 'yes'});`,
		Phase:  state.PhasePreRequest,
		Request: &RequestPayload{
			Method: "GET",
			URL:    "https://api.test/items",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result state.RunResult
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.MutatedRequest)
	require.Len(t, result.MutatedRequest.Headers, 1)
	assert.Equal(t, "X-Signed", result.MutatedRequest.Headers[0].Name)
}

func TestRunScriptErrorIsUnprocessable(t *testing.T) {
	s := newTestServer(t)
	rec := doRun(t, s, RunRequest{Source: `throw new Error('broken script');`})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var failure state.ScriptFailure
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, state.FailureScriptError, failure.Kind)
	assert.Contains(t, failure.Message, "broken script")
}

func TestRunTimeoutIsUnprocessable(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Timeout = 100 * time.Millisecond
	s := NewServer(cfg, logging.NewNop())

	rec := doRun(t, s, RunRequest{Source: `while (true) {}`})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var failure state.ScriptFailure
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, state.FailureTimeout, failure.Kind)
}
