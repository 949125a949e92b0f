package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// sseHandler streams the given tokens as chat completion SSE events.
func sseHandler(t *testing.T, tokens []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, tok := range tokens {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGenerator(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return g
}

func TestNewGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(Config{})
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}

func TestStream_YieldsTokensInOrder(t *testing.T) {
	g := newTestGenerator(t, sseHandler(t, []string{"Hello", ", ", "world."}))

	stream, err := g.Stream(context.Background(), "greet me")
	require.NoError(t, err)
	defer stream.Close()

	var tokens []string
	for {
		tok, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
	assert.Equal(t, []string{"Hello", ", ", "world."}, tokens)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_SkipsEmptyDeltas(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"tok\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := g.Stream(context.Background(), "q")
	require.NoError(t, err)
	defer stream.Close()

	tok, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_RecvAfterCloseReturnsStreamClosed(t *testing.T) {
	g := newTestGenerator(t, sseHandler(t, []string{"a", "b"}))

	stream, err := g.Stream(context.Background(), "q")
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	_, err = stream.Recv()
	assert.ErrorIs(t, err, domain.ErrStreamClosed)
}

func TestStream_TruncatedBodyIsNotEOF(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		// Body ends without a [DONE] event.
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"tok\"}}]}\n\n")
	})

	stream, err := g.Stream(context.Background(), "q")
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Recv()
	require.NoError(t, err)

	_, err = stream.Recv()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStream_HTTPErrorSurfacesBeforeStreaming(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key"}}`)
	})

	_, err := g.Stream(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestPing(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, g.Ping(context.Background()))
}
