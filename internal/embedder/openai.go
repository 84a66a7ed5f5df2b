package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tscontext/tscontext-mcp/pkg/types"
)

const (
	openAIModel     = "text-embedding-3-small"
	openAIDimension = 1536
	openAIEndpoint  = "https://api.openai.com/v1/embeddings"

	// The embeddings API accepts far larger batches; staying small keeps a
	// failed call from discarding much finished work.
	openAIMaxInputs = 100

	openAIAttempts  = 3
	openAIBaseDelay = 100 * time.Millisecond
	openAIMaxDelay  = 5 * time.Second
)

// OpenAI embeds chunk code through the OpenAI embeddings API. Chunks whose
// content hash is already cached are served locally; only misses are sent
// over the wire, in batches of at most openAIMaxInputs.
type OpenAI struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	cache    *vectorCache
}

// NewOpenAI creates an OpenAI-backed embedder. The key falls back to
// OPENAI_API_KEY; OPENAI_BASE_URL overrides the API host.
func NewOpenAI(apiKey string, cacheSize int) (*OpenAI, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNotConfigured, EnvOpenAIAPIKey)
	}

	endpoint := openAIEndpoint
	if base := os.Getenv(EnvOpenAIBaseURL); base != "" {
		endpoint = strings.TrimSuffix(base, "/") + "/embeddings"
	}

	return &OpenAI{
		apiKey:   apiKey,
		model:    openAIModel,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		cache:    newVectorCache(cacheSize),
	}, nil
}

func (o *OpenAI) EmbedChunks(ctx context.Context, chunks []*types.CodeChunk) ([]ChunkVector, error) {
	if err := validateChunks(chunks); err != nil {
		return nil, err
	}

	out := make([]ChunkVector, len(chunks))
	var misses []int
	for i, c := range chunks {
		if v, ok := o.cache.get(c.ContentHash); ok {
			out[i] = o.chunkVector(c.ID, v)
			continue
		}
		misses = append(misses, i)
	}

	for start := 0; start < len(misses); start += openAIMaxInputs {
		end := start + openAIMaxInputs
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		inputs := make([]string, len(batch))
		for j, idx := range batch {
			inputs[j] = chunks[idx].Code
		}

		vectors, err := o.requestWithBackoff(ctx, inputs)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrProvider, len(vectors), len(batch))
		}

		for j, idx := range batch {
			o.cache.put(chunks[idx].ContentHash, vectors[j])
			out[idx] = o.chunkVector(chunks[idx].ID, vectors[j])
		}
	}

	return out, nil
}

func (o *OpenAI) chunkVector(chunkID string, v []float32) ChunkVector {
	return ChunkVector{
		ChunkID:   chunkID,
		Vector:    v,
		Dimension: len(v),
		Provider:  ProviderOpenAI,
		Model:     o.model,
	}
}

// requestWithBackoff retries transient API failures with doubling delay.
// Context cancellation aborts between attempts.
func (o *OpenAI) requestWithBackoff(ctx context.Context, inputs []string) ([][]float32, error) {
	delay := openAIBaseDelay
	var lastErr error

	for attempt := 1; attempt <= openAIAttempts; attempt++ {
		vectors, err := o.request(ctx, inputs)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == openAIAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > openAIMaxDelay {
			delay = openAIMaxDelay
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrProvider, openAIAttempts, lastErr)
}

func (o *OpenAI) request(ctx context.Context, inputs []string) ([][]float32, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"input": inputs,
		"model": o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: response has %d embeddings for %d inputs", ErrProvider, len(decoded.Data), len(inputs))
	}

	// The API may return entries out of order; the index field is
	// authoritative.
	vectors := make([][]float32, len(inputs))
	for _, d := range decoded.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProvider, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (o *OpenAI) Dimension() int {
	return openAIDimension
}

func (o *OpenAI) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAI) Model() string {
	return o.model
}

func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}
