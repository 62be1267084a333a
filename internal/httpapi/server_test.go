package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/config"
	"github.com/fyrsmithlabs/atlasd/internal/tools"
)

type fakeAsker struct {
	env  answer.Envelope
	last answer.Question
}

func (f *fakeAsker) Ask(ctx context.Context, q answer.Question) answer.Envelope {
	f.last = q
	env := f.env
	env.QuestionID = q.ID
	return env
}

type fakeSchemas struct{}

func (fakeSchemas) Schemas() []tools.Schema {
	return []tools.Schema{
		{Name: "list_floors", Description: "List every floor."},
		{Name: "rooms_on_floor", Description: "Rooms on one floor.", Args: []tools.ArgSpec{
			{Name: "floor", Type: tools.ArgInt, Required: true},
		}},
	}
}

func newTestServer(t *testing.T, asker *fakeAsker) *Server {
	t.Helper()
	s, err := NewServer(asker, fakeSchemas{}, zap.NewNop(), config.ServerConfig{Host: "localhost", Port: 0})
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})

	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleAsk(t *testing.T) {
	asker := &fakeAsker{env: answer.Envelope{
		Answer: "2 floors",
		Route:  answer.RouteTool,
	}}
	s := newTestServer(t, asker)

	rec := doRequest(s, http.MethodPost, "/api/v1/ask",
		`{"question": "Which floors are there?", "conversation_id": "c1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env answer.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "2 floors", env.Answer)
	assert.Equal(t, answer.RouteTool, env.Route)
	assert.NotEmpty(t, env.QuestionID)

	assert.Equal(t, "Which floors are there?", asker.last.Text)
	assert.Equal(t, "c1", asker.last.ConversationID)
}

func TestHandleAskValidation(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})

	rec := doRequest(s, http.MethodPost, "/api/v1/ask", `{"question": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/ask", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAskTotalFailure(t *testing.T) {
	asker := &fakeAsker{env: answer.Envelope{
		Route: answer.RouteLLMRouting,
		Err:   "capability: provider_unavailable: connection refused",
	}}
	s := newTestServer(t, asker)

	rec := doRequest(s, http.MethodPost, "/api/v1/ask", `{"question": "hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider_unavailable")
}

func TestHandleTools(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})

	rec := doRequest(s, http.MethodGet, "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ToolDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "list_floors", out[0].Name)
	require.Len(t, out[1].Args, 1)
	assert.True(t, out[1].Args[0].Required)
}

func TestHandleMetrics(t *testing.T) {
	s := newTestServer(t, &fakeAsker{})

	rec := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(nil, nil, zap.NewNop(), config.ServerConfig{})
	require.Error(t, err)

	_, err = NewServer(&fakeAsker{}, nil, nil, config.ServerConfig{})
	require.Error(t, err)
}
