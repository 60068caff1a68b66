package sheetstub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraquant/internal/domain"
)

func post(t *testing.T, h http.Handler, body string) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec.Code
}

func TestStubWrites(t *testing.T) {
	stub, err := New(&domain.Snapshot{Users: []domain.User{{ID: "U1", PhoneNumber: "9876543210", Name: "Ravi"}}})
	require.NoError(t, err)
	h := stub.Handler()

	assert.Equal(t, http.StatusOK, post(t, h, `{"target":"signals","action":"ADD","payload":{"id":"SIG-1","status":"ACTIVE"}}`))
	assert.Equal(t, http.StatusOK, post(t, h, `{"target":"signals","action":"UPDATE_SIGNAL","id":"SIG-1","payload":{"status":"EXITED"}}`))
	assert.Equal(t, http.StatusOK, post(t, h, `{"target":"users","action":"UPDATE_USER","id":"U1","payload":{"name":"Ravi K"}}`))
	assert.Equal(t, http.StatusOK, post(t, h, `{"target":"users","action":"DELETE_USER","id":"U1"}`))

	assert.Equal(t, http.StatusBadRequest, post(t, h, `{"target":"trades","action":"ADD","payload":{}}`))
	assert.Equal(t, http.StatusBadRequest, post(t, h, `{"target":"signals","action":"UPDATE_SIGNAL","id":"nope","payload":{}}`))
	assert.Equal(t, http.StatusBadRequest, post(t, h, `{"target":"signals","action":"ADD","payload":[1]}`))
	assert.Equal(t, http.StatusBadRequest, post(t, h, `not json`))

	assert.Equal(t, 4, stub.Writes())
	signals := stub.Rows(domain.TargetSignals)
	require.Len(t, signals, 1)
	assert.Equal(t, "EXITED", signals[0]["status"])
	assert.Empty(t, stub.Rows(domain.TargetUsers))
}

func TestStubReads(t *testing.T) {
	stub, err := New(nil)
	require.NoError(t, err)
	h := stub.Handler()

	read := func() (string, string) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?t=1", nil))
		return rec.Header().Get("Content-Type"), rec.Body.String()
	}

	ctype, body := read()
	assert.Equal(t, "application/json", ctype)
	assert.Contains(t, body, `"signals":[]`)

	stub.SetNoise("/* cached */")
	_, body = read()
	assert.True(t, strings.HasPrefix(body, "/* cached */{"))

	stub.SetBlocked(true)
	ctype, body = read()
	assert.Contains(t, ctype, "text/html")
	assert.Contains(t, body, "<!DOCTYPE html>")
}
