package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeRunsCommand(t *testing.T) {
	out, err := Native{}.Run(context.Background(), "echo hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestNativeReturnsOutputOnFailure(t *testing.T) {
	out, err := Native{}.Run(context.Background(), "echo partial; exit 3")
	assert.Error(t, err)
	assert.Equal(t, "partial", out)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Run(context.Background(), "echo hi")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, Unavailable{}.Available())
}

func TestSelectPrefersBridge(t *testing.T) {
	r := Select("http://localhost:9999")
	_, ok := r.(*Remote)
	assert.True(t, ok)

	// No bridge, sh exists on test machines.
	assert.True(t, Select("").Available())
}

func TestRemoteRunsOverBridge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/exec", r.URL.Path)
		var req bridgeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "uptime", req.Command)
		json.NewEncoder(w).Encode(bridgeResponse{Output: "up 3 days"})
	}))
	defer srv.Close()

	out, err := NewRemote(srv.URL).Run(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, "up 3 days", out)
}

func TestRemoteSurfacesBridgeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bridgeResponse{Error: "command not permitted"})
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL).Run(context.Background(), "rm -rf /")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not permitted")
}
