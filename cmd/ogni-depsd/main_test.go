package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	s := newServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestHandleResolveMalformedBody(t *testing.T) {
	s := newServer()
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleResolveUnknownFamily(t *testing.T) {
	s := newServer()
	body, _ := json.Marshal(resolveRequest{Family: "not-a-family", Name: "whatever"})
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleResolveBinaryRoundtrip(t *testing.T) {
	s := newServer()
	body, _ := json.Marshal(resolveRequest{Family: "binary", Name: "gpg"})
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)

	// The built-in ecosystem resolvers do not cover "binary" requirements,
	// so this is expected to 404 rather than 500 regardless of host state.
	require.Equal(t, http.StatusNotFound, w.Code)
}
