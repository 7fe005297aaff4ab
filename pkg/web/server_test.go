package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AConteh33/go-marcus/pkg/session"
	"github.com/AConteh33/go-marcus/pkg/tools"
	"github.com/AConteh33/go-marcus/pkg/transcript"
)

type stubController struct {
	state      session.OrbState
	entries    transcript.Log
	user, ai   string
	connects   int
	disconnect int
	said       []string
	sayErr     error
	connectErr error
}

func (s *stubController) Connect(ctx context.Context) error {
	s.connects++
	return s.connectErr
}

func (s *stubController) Disconnect() { s.disconnect++ }

func (s *stubController) SendText(text string) error {
	if s.sayErr != nil {
		return s.sayErr
	}
	s.said = append(s.said, text)
	return nil
}

func (s *stubController) State() session.OrbState        { return s.state }
func (s *stubController) Transcript() transcript.Log     { return s.entries }
func (s *stubController) Partial() (string, string)      { return s.user, s.ai }
func (s *stubController) ToolUsage() (tools.Usage, bool) { return tools.Usage{}, false }
func (s *stubController) Declarations() []tools.Declaration {
	return []tools.Declaration{{Name: "get_time", Description: "Get the current date and time."}}
}

func testRequest(t *testing.T, srv *Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := srv.app.Test(req)
	require.NoError(t, err)

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestHandleStateSnapshot(t *testing.T) {
	ctrl := &stubController{state: session.StateListening, user: "what ti", ai: ""}
	srv := NewServer("0", ctrl)

	resp, payload := testRequest(t, srv, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "listening", payload["state"])
	partial := payload["partial"].(map[string]any)
	assert.Equal(t, "what ti", partial["user"])
}

func TestHandleConnectAndDisconnect(t *testing.T) {
	ctrl := &stubController{state: session.StateIdle}
	srv := NewServer("0", ctrl)

	resp, _ := testRequest(t, srv, http.MethodPost, "/api/connect", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, ctrl.connects)

	resp, _ = testRequest(t, srv, http.MethodPost, "/api/disconnect", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, ctrl.disconnect)
}

func TestHandleConnectFailure(t *testing.T) {
	ctrl := &stubController{connectErr: assert.AnError}
	srv := NewServer("0", ctrl)

	resp, payload := testRequest(t, srv, http.MethodPost, "/api/connect", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotEmpty(t, payload["error"])
}

func TestHandleSay(t *testing.T) {
	ctrl := &stubController{}
	srv := NewServer("0", ctrl)

	resp, _ := testRequest(t, srv, http.MethodPost, "/api/say", `{"text": "  hello  "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, ctrl.said, 1)
	assert.Equal(t, "hello", ctrl.said[0])

	resp, _ = testRequest(t, srv, http.MethodPost, "/api/say", `{"text": "   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctrl.sayErr = session.ErrNotConnected
	resp, _ = testRequest(t, srv, http.MethodPost, "/api/say", `{"text": "hi"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleToolsList(t *testing.T) {
	srv := NewServer("0", &stubController{})

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decls []tools.Declaration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decls))
	require.Len(t, decls, 1)
	assert.Equal(t, "get_time", decls[0].Name)
}

func TestHandleTranscript(t *testing.T) {
	ctrl := &stubController{entries: transcript.Log{
		transcript.NewEntry(transcript.SpeakerUser, "hi"),
	}}
	srv := NewServer("0", ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/transcript", nil)
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries transcript.Log
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "hi", entries[0].Text)
}
