package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "llama3.2")
	assert.True(t, c.Ready(context.Background()))
}

func TestReady_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close() // connection refused from here on

	c := NewOllamaChat(srv.URL, "llama3.2")
	assert.False(t, c.Ready(context.Background()))
}

func TestStartInference_StreamsChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.True(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		for _, content := range []string{"Hello", ", ", "world"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", content)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "llama3.2")

	var got strings.Builder
	err := c.StartInference(context.Background(), "say hello", func(s string) {
		got.WriteString(s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", got.String())
}

func TestStartInference_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "missing-model")
	err := c.StartInference(context.Background(), "anything", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewOllamaChat_DefaultBaseURL(t *testing.T) {
	c := NewOllamaChat("", "llama3.2")
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
