package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe(t *testing.T) {
	cfg := quietConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, cfg, ServeOptions{
			StoryPath: writeStory(t, doorStory),
			Addr:      "127.0.0.1:0",
			Ready:     func(addr string) { ready <- addr },
			Out:       &out,
		})
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	base := "http://" + addr

	resp, err := http.Post(base+"/sessions", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, created.ID)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_BadAddress(t *testing.T) {
	err := Serve(context.Background(), quietConfig(t), ServeOptions{
		StoryPath: writeStory(t, doorStory),
		Addr:      "256.0.0.1:-1",
	})
	assert.ErrorContains(t, err, "failed to listen")
}

func TestNewMCPServer(t *testing.T) {
	srv, closeStore, err := NewMCPServer(context.Background(), quietConfig(t), writeStory(t, doorStory))
	require.NoError(t, err)
	defer closeStore()
	assert.NotNil(t, srv.MCPServer())

	_, _, err = NewMCPServer(context.Background(), quietConfig(t), "missing.ink")
	assert.Error(t, err)
}
