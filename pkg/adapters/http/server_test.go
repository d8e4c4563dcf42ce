package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/pkg/adapters/memory"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/observability"
	"github.com/aretw0/inkwell/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const door = `VAR name = "stranger"
== door ==
Someone knocks.
Hello, {name}.
* [Open] You open the door. -> END
* [Wait] -> door
`

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	eng, err := inkwell.New(door, inkwell.WithName("door"))
	require.NoError(t, err)
	return NewHandler(eng, session.NewManager(eng, memory.NewStore()), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func create(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SessionResponse](t, w).ID
}

func TestServer_Playthrough(t *testing.T) {
	h := newTestHandler(t)
	id := create(t, h, `{"variables": {"name": "Ada"}}`)

	w := do(t, h, http.MethodPost, "/sessions/"+id+"/advance", "")
	require.Equal(t, http.StatusOK, w.Code)
	step := decode[StepResponse](t, w)
	assert.Equal(t, domain.StepLine, step.Step.Kind)
	assert.Equal(t, "Someone knocks.", step.Step.Line.Text)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/continue", "")
	require.Equal(t, http.StatusOK, w.Code)
	cont := decode[ContinueResponse](t, w)
	assert.Equal(t, "Hello, Ada.", cont.Text)
	require.Equal(t, domain.StepChoices, cont.Step.Kind)
	assert.Equal(t, []domain.ChoiceOption{{Index: 0, Text: "Open"}, {Index: 1, Text: "Wait"}}, cont.Step.Choices)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/select", `{"index": 0}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/continue", "")
	require.Equal(t, http.StatusOK, w.Code)
	cont = decode[ContinueResponse](t, w)
	assert.Equal(t, "You open the door.", cont.Text)
	assert.Equal(t, domain.StepEnded, cont.Step.Kind)
	assert.Equal(t, domain.StatusEnded, cont.State.Status)

	w = do(t, h, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusEnded, decode[SessionResponse](t, w).State.Status)

	w = do(t, h, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{id}, decode[map[string][]string](t, w)["sessions"])

	w = do(t, h, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Errors(t *testing.T) {
	h := newTestHandler(t)
	id := create(t, h, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", http.MethodPost, "/sessions/nope/advance", "", http.StatusNotFound},
		{"select before choices", http.MethodPost, "/sessions/" + id + "/select", `{"index": 0}`, http.StatusConflict},
		{"select without index", http.MethodPost, "/sessions/" + id + "/select", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/sessions", `{`, http.StatusBadRequest},
		{"unknown knot", http.MethodPost, "/sessions", `{"knot": "cellar"}`, http.StatusBadRequest},
		{"undeclared variable", http.MethodPost, "/sessions", `{"variables": {"gold": 1}}`, http.StatusBadRequest},
		{"wrong variable kind", http.MethodPost, "/sessions", `{"variables": {"name": true}}`, http.StatusBadRequest},
		{"unsupported variable", http.MethodPost, "/sessions", `{"variables": {"name": [1]}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_SelectOutOfRange(t *testing.T) {
	h := newTestHandler(t)
	id := create(t, h, "")
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/sessions/"+id+"/continue", "").Code)

	w := do(t, h, http.MethodPost, "/sessions/"+id+"/select", `{"index": 7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The failed selection left the stored playthrough untouched.
	w = do(t, h, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, domain.StatusAwaitingChoice, decode[SessionResponse](t, w).State.Status)
}

func TestServer_InfoAndHealth(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]any](t, w)
	assert.Equal(t, "door", info["story"])
	assert.Equal(t, strings.TrimSpace(inkwell.Version), info["version"])
	assert.Equal(t, []any{"door"}, info["knots"])
}

func TestServer_Graph(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `k_door(("door"))`)
	assert.NotContains(t, w.Body.String(), "class ")

	id := create(t, h, "")
	w = do(t, h, http.MethodGet, "/sessions/"+id+"/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class k_door current;")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	eng, err := inkwell.New(door, inkwell.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)
	h := NewHandler(eng, session.NewManager(eng, memory.NewStore()), WithMetrics(reg))

	id := create(t, h, "")
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/sessions/"+id+"/continue", "").Code)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inkwell_lines_total 2")

	assert.Equal(t, http.StatusNotFound, do(t, newTestHandler(t), http.MethodGet, "/metrics", "").Code)
}

func TestServer_CORS(t *testing.T) {
	w := do(t, newTestHandler(t), http.MethodOptions, "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_RequiresSession(t *testing.T) {
	w := do(t, newTestHandler(t), http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribeEvents_Session(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	id := create(t, h, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id="+id+"&kinds=choices", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: ping", scanner.Text())
	require.True(t, scanner.Scan())
	assert.Equal(t, "data: connected", scanner.Text())

	// The subscription is registered before the ping is flushed.
	w := do(t, h, http.MethodPost, "/sessions/"+id+"/continue", "")
	require.Equal(t, http.StatusOK, w.Code)

	var events []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "data: ") {
			assert.Contains(t, line, `"kind":"choices"`)
			break
		}
	}
	assert.Equal(t, []string{"choices"}, events)
}

func TestStreamManager_DropsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	sm := NewStreamManager(slog.New(slog.NewTextHandler(&buf, nil)))
	_, unsubscribe := sm.Subscribe("s1")
	defer unsubscribe()

	for range 11 {
		sm.Broadcast("s1", "line", `{"kind":"line"}`)
	}
	assert.Contains(t, buf.String(), "dropping message")
	assert.Contains(t, buf.String(), "session_id=s1")

	assert.NotPanics(t, func() {
		quiet := NewStreamManager(nil)
		_, stop := quiet.Subscribe("s1")
		defer stop()
		for range 11 {
			quiet.Broadcast("s1", "line", "{}")
		}
	})
}
