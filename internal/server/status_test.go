package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bz888/cardadvisor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func (w *brokenWriter) WriteHeader(int) {}

func TestStatusHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(new(MockOllamaClient), "deepseek-r1:latest").StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["server_working"])
	assert.Equal(t, "deepseek-r1:latest", status["model"])
}

func TestStatusHandlerLogsWriteFailure(t *testing.T) {
	console := &lockedBuffer{}
	require.NoError(t, logger.InitLogger(true, "", console))

	NewHandler(new(MockOllamaClient), "m").StatusHandler(&brokenWriter{}, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Contains(t, console.String(), "Failed to encode status: client went away")
}
