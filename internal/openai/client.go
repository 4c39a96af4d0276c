// Package openai implements the completion service client against the
// OpenAI-compatible HTTP API.
package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"pkt.systems/pslog"
	"pkt.systems/redpen/schema"
)

// DefaultBaseURL is the OpenAI API endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

const (
	defaultModelCacheTTL = 5 * time.Minute
	modelIDPrefix        = "gpt-"
	maxModelsBody        = 1 << 20
)

// Client talks to the completion API. The model catalog is cached per API
// key fingerprint so repeated menu rebuilds do not hammer the endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *ttlcache.Cache[string, []schema.ModelID]
	log     pslog.Logger
}

// NewClient constructs a Client. An empty baseURL selects the public OpenAI
// endpoint; cacheTTL <= 0 selects the default model cache lifetime.
func NewClient(baseURL string, cacheTTL time.Duration, logger pslog.Logger) *Client {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if cacheTTL <= 0 {
		cacheTTL = defaultModelCacheTTL
	}
	cache := ttlcache.New[string, []schema.ModelID](
		ttlcache.WithTTL[string, []schema.ModelID](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, []schema.ModelID](),
	)
	go cache.Start()
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
		log:     logger,
	}
}

// Close stops the model cache expiration loop.
func (c *Client) Close() {
	c.cache.Stop()
}

// CompleteText sends one proofreading request. The prompt text rides as the
// system message and the document content as the user message.
func (c *Client) CompleteText(ctx context.Context, req schema.CompletionRequest) (schema.CompletionResponse, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return schema.CompletionResponse{}, schema.ErrNoAPIKey
	}
	prompt, ok := req.Prompts.Find(req.Prompt)
	if !ok {
		return schema.CompletionResponse{}, schema.ErrPromptNotFound
	}
	if strings.TrimSpace(req.Content) == "" {
		return schema.CompletionResponse{}, schema.ErrEmptyContent
	}
	model := req.Model
	if model == "" {
		model = schema.DefaultModelID
	}

	llm, err := lcopenai.New(
		lcopenai.WithToken(req.APIKey),
		lcopenai.WithModel(string(model)),
		lcopenai.WithBaseURL(c.baseURL),
	)
	if err != nil {
		return schema.CompletionResponse{}, fmt.Errorf("completion client: %w", err)
	}

	c.log.Debug("completion request", "model", model, "prompt", prompt.ID, "content_len", len(req.Content))
	resp, err := llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.Text),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Content),
	})
	if err != nil {
		return schema.CompletionResponse{}, wrapAPIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return schema.CompletionResponse{}, nil
	}
	return schema.CompletionResponse{Text: strings.TrimSpace(resp.Choices[0].Content)}, nil
}

// ListModels fetches the chat-capable model catalog, serving repeated calls
// from the cache.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]schema.ModelID, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, schema.ErrNoAPIKey
	}
	cacheKey := fingerprint(apiKey)
	if item := c.cache.Get(cacheKey); item != nil {
		c.log.Debug("model list cache hit", "models", len(item.Value()))
		return append([]schema.ModelID(nil), item.Value()...), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxModelsBody))
	if err != nil {
		return nil, fmt.Errorf("read models response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromBody(resp.StatusCode, body)
	}

	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse models response: %w", err)
	}

	ids := make([]schema.ModelID, 0, len(payload.Data))
	for _, m := range payload.Data {
		if !strings.HasPrefix(m.ID, modelIDPrefix) {
			continue
		}
		id, err := schema.NormalizeModelID(m.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	c.cache.Set(cacheKey, ids, ttlcache.DefaultTTL)
	c.log.Debug("model list fetched", "models", len(ids))
	return append([]schema.ModelID(nil), ids...), nil
}

// wrapAPIError classifies completion failures: cancellation passes through
// untouched so callers can tell a torn-down request from a service fault.
func wrapAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &schema.APIError{Message: err.Error()}
}

func apiErrorFromBody(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return &schema.APIError{Message: payload.Error.Message}
	}
	return &schema.APIError{Message: fmt.Sprintf("models request failed with status %d", status)}
}

func fingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}
