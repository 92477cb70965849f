// Package openai implements the ChatModel and VisionModel provider ports against the OpenAI
// chat-completions API (and any OpenAI-compatible endpoint, including a local Ollama server).
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appmeal "github.com/alchemorsel/nutricore/internal/application/meal"
	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/infrastructure/config"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"go.uber.org/zap"
)

// Client implements outbound.ChatModel and outbound.VisionModel against an OpenAI-compatible
// chat-completions endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	chatModel   string
	visionModel string
	embeddingModel string
	httpClient  *http.Client
	images      outbound.ImageStore
	logger      *zap.Logger
}

// NewClient creates the OpenAI-compatible provider client. When cfg.OpenAIKey is empty it falls
// back to a local Ollama server, mirroring the no-vendor-lock-in default this stack has always
// shipped with.
func NewClient(cfg config.AIConfig, images outbound.ImageStore, logger *zap.Logger) *Client {
	apiKey := cfg.OpenAIKey
	baseURL := cfg.BaseURL

	if baseURL == "" {
		if apiKey == "" {
			logger.Info("no OpenAI API key configured, falling back to local Ollama")
			baseURL = "http://localhost:11434/v1"
			apiKey = "ollama"
		} else {
			baseURL = "https://api.openai.com/v1"
		}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = chatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	return &Client{
		apiKey:         apiKey,
		baseURL:        baseURL,
		chatModel:      chatModel,
		visionModel:    visionModel,
		embeddingModel: embeddingModel,
		httpClient:     &http.Client{Timeout: timeout},
		images:         images,
		logger:         logger.Named("openai-client"),
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements the embedding half of outbound.NutritionIndex's provider dependency (§4.4):
// a single text query is embedded once and reused against both vector indices.
func (c *Client) Embed(ctx context.Context, query string) ([]float32, error) {
	jsonBody, err := json.Marshal(embeddingRequest{Model: c.embeddingModel, Input: query})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, string(msg))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding response carried no vectors")
	}
	return out.Data[0].Embedding, nil
}

// chatMessage is a single entry of the chat-completions "messages" array. Content may be a plain
// string or, for vision requests, a []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete implements outbound.ChatModel's unary surface.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatCompletionRequest{
		Model:       c.chatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.4,
		MaxTokens:   800,
	}

	body, err := c.do(ctx, "/chat/completions", req)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp chatCompletionResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content, _ := resp.Choices[0].Message.Content.(string)
	return content, nil
}

// Stream implements outbound.ChatModel's incremental surface using server-sent events, per the
// OpenAI streaming chat-completions wire format.
func (c *Client) Stream(ctx context.Context, prompt string) (<-chan outbound.StreamDelta, error) {
	req := chatCompletionRequest{
		Model:       c.chatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.4,
		MaxTokens:   800,
		Stream:      true,
	}

	body, err := c.do(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	out := make(chan outbound.StreamDelta, 16)
	go func() {
		defer close(out)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				select {
				case out <- outbound.StreamDelta{Done: true}:
				case <-ctx.Done():
				}
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := outbound.StreamDelta{Text: chunk.Choices[0].Delta.Content}
			if chunk.Choices[0].FinishReason != nil {
				delta.Done = true
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
			if delta.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.logger.Warn("chat stream scan error", zap.Error(err))
		}
	}()

	return out, nil
}

// Analyze implements outbound.VisionModel: fetch the stored image, prompt the vision-capable
// model for a structured food breakdown, and parse its response via the tolerant cascade §4.2.2
// defines, mapping a detected refusal to the domain's ErrContentBlocked.
func (c *Client) Analyze(ctx context.Context, imageRef string, strategy meal.AnalysisStrategy, hint outbound.AnalysisHint) (string, []outbound.ParsedFoodItem, error) {
	data, contentType, err := c.loadImage(ctx, imageRef)
	if err != nil {
		return "", nil, fmt.Errorf("load meal image: %w", err)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	req := chatCompletionRequest{
		Model: c.visionModel,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: visionPrompt(strategy, hint)},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		Temperature: 0.2,
		MaxTokens:   1200,
	}

	body, err := c.do(ctx, "/chat/completions", req)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()

	var resp chatCompletionResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", nil, fmt.Errorf("decode vision response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, meal.ErrNoFoodDetected
	}

	raw, _ := resp.Choices[0].Message.Content.(string)
	dishName, items, err := appmeal.ParseVisionResponse(raw)
	if err != nil {
		if err == appmeal.ErrVisionRefused {
			return "", nil, meal.ErrContentBlocked
		}
		return "", nil, err
	}

	out := make([]outbound.ParsedFoodItem, 0, len(items))
	for _, it := range items {
		out = append(out, outbound.ParsedFoodItem{
			Name: it.Name, Quantity: it.Quantity, Unit: it.Unit,
			Calories: it.Calories, Protein: it.Protein, Carbs: it.Carbs, Fat: it.Fat, Fiber: it.Fiber,
		})
	}
	return dishName, out, nil
}

func (c *Client) loadImage(ctx context.Context, imageRef string) (data []byte, contentType string, err error) {
	data, err = c.images.Get(ctx, imageRef)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

func visionPrompt(strategy meal.AnalysisStrategy, hint outbound.AnalysisHint) string {
	var b strings.Builder
	b.WriteString("Identify every distinct food item visible in this meal photo and estimate its " +
		"quantity and macros. Respond with ONLY a JSON object of the exact shape " +
		`{"dish_name": "...", "items": [{"name": "...", "quantity": 0, "unit": "...", ` +
		`"calories": 0, "protein": 0, "carbs": 0, "fat": 0}]}. No other text.`)

	switch strategy {
	case meal.StrategyPortionAware:
		fmt.Fprintf(&b, " The user reports the portion as: %q.", hint.PortionHint)
	case meal.StrategyIngredientAware:
		fmt.Fprintf(&b, " The user reports these known ingredients: %s.", strings.Join(hint.KnownFoods, ", "))
	case meal.StrategyWeightAware:
		if hint.TotalWeightG != nil {
			fmt.Fprintf(&b, " The total plate weighs %.0fg; scale your per-item quantities to sum to that.", *hint.TotalWeightG)
		}
	case meal.StrategyUserContextAware:
		fmt.Fprintf(&b, " Additional context from the user: %s.", hint.Description)
	case meal.StrategyCombined:
		if hint.PortionHint != "" {
			fmt.Fprintf(&b, " Portion: %q.", hint.PortionHint)
		}
		if hint.Description != "" {
			fmt.Fprintf(&b, " Context: %s.", hint.Description)
		}
	}
	return b.String()
}

// do issues the chat-completions POST and returns the response body for the caller to decode or
// stream; the caller owns closing it.
func (c *Client) do(ctx context.Context, path string, payload chatCompletionRequest) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(msg))
	}
	return resp.Body, nil
}
