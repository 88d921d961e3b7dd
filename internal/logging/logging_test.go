package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, &buf)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", map[string]interface{}{"k": 1})
	l.Error("also shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["message"])
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, 1.0, entries[0]["k"])
	assert.Contains(t, entries[0]["caller"], "logging/logging_test.go")
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(DebugLevel, &buf).WithField("component", "solver")
	base.WithError(errors.New("boom")).Info("failed")
	base.Info("plain")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "solver", entries[0]["component"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.NotContains(t, entries[1], "error", "WithError does not leak into the parent")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf).WithFormat(TextFormat).WithFields(map[string]interface{}{"b": 2, "a": "x"})
	l.Info("hello")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, " INFO  hello a=x b=2 caller=")
	assert.Equal(t, JSONFormat, New(InfoLevel, &buf).WithFormat("yaml").format)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, l.level)

	l, err = NewLogger(&Config{Level: "debug", Format: "TEXT", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l.level)
	assert.Equal(t, TextFormat, l.format)

	_, err = NewLogger(&Config{Output: t.TempDir() + "/missing/dir/log"})
	assert.Error(t, err)
	_, err = NewLogger(&Config{Level: "verbose"})
	assert.Error(t, err)
	_, err = NewLogger(&Config{Format: "console"})
	assert.Error(t, err)

	path := t.TempDir() + "/upmsp.log"
	l, err = NewLogger(&Config{Level: "warn", Output: path})
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("kept")
	require.NoError(t, l.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": DebugLevel, " Info ": InfoLevel, "WARN": WarnLevel, "error": ErrorLevel, "fatal": FatalLevel} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestConcurrentWritesKeepLinesWhole(t *testing.T) {
	var buf bytes.Buffer
	root := New(InfoLevel, &buf)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			l := root.WithField("seed", seed)
			for j := 0; j < 50; j++ {
				l.Info("Run finished", map[string]interface{}{"iteration": j})
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, decodeLines(t, &buf), 400)
}

func TestFatalExits(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })

	var buf bytes.Buffer
	New(InfoLevel, &buf).Fatal("cannot listen")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "cannot listen")
}

func TestZapLoggerForwardsFields(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).Named("sa").With(zap.String("instance", "I_50"))

	zl.Debug("dropped")
	zl.Info("Search finished",
		zap.Int("best_cost", 1234),
		zap.Float64("temperature", 0.25),
		zap.Duration("elapsed", 1500*time.Millisecond),
		zap.Bool("feasible", true),
		zap.Error(errors.New("no feasible move")))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "Search finished", e["message"])
	assert.Equal(t, "sa", e["logger"])
	assert.Equal(t, "I_50", e["instance"])
	assert.Equal(t, 1234.0, e["best_cost"])
	assert.Equal(t, 0.25, e["temperature"])
	assert.Equal(t, true, e["feasible"])
	assert.Equal(t, "no feasible move", e["error"])
	assert.NotEmpty(t, e["elapsed"])
	assert.Contains(t, e["caller"], "logging/logging_test.go")
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Middleware(New(InfoLevel, &buf), "/healthz"))
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/ok", "/missing", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "inside handler", entries[0]["message"])
	assert.Equal(t, "/ok", entries[0]["path"])
	assert.Equal(t, "Request completed", entries[1]["message"])
	assert.Equal(t, 200.0, entries[1]["status"])
	assert.Equal(t, "Request rejected", entries[2]["message"])
	assert.Equal(t, "Not Found", entries[2]["error"])
}
