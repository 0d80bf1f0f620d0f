package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEmbeddingServer(t *testing.T, status int) (*httptest.Server, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &last)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		// out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newClient(t *testing.T, baseURL string, dimensions int) *EmbeddingClient {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("openai.base_url", baseURL)
	cfg.Set("openai.dimensions", dimensions)

	client, err := NewFactory(cfg, zap.NewNop()).CreateClient("text-embedding-3-small")
	require.NoError(t, err)
	return client
}

func TestEmbedOrdersByIndex(t *testing.T) {
	srv, last := newEmbeddingServer(t, http.StatusOK)
	client := newClient(t, srv.URL, 2)

	out, err := client.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, []core.Embedding{{1, 0}, {0, 1}}, out)
	assert.Equal(t, "text-embedding-3-small", (*last)["model"])
	assert.EqualValues(t, 2, (*last)["dimensions"])
	assert.Equal(t, 2, client.Dimension())
}

func TestEmbedCountMismatch(t *testing.T) {
	srv, _ := newEmbeddingServer(t, http.StatusOK)
	client := newClient(t, srv.URL, 0)

	_, err := client.Embed(context.Background(), []string{"only one"})
	assert.ErrorContains(t, err, "returned 2 embeddings for 1 inputs")
}

func TestEmbedServerError(t *testing.T) {
	srv, _ := newEmbeddingServer(t, http.StatusInternalServerError)
	client := newClient(t, srv.URL, 0)

	_, err := client.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestCreateClientRequiresCredentials(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	_, err := NewFactory(cfg, zap.NewNop()).CreateClient("m")
	assert.Error(t, err)
}
