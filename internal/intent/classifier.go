// Package intent labels inbound messages with the requester's intent
// via an OpenAI-compatible chat completion call. Classification is
// advisory: on any service failure the classifier falls back to the
// safe default of assuming a new charter request.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/rfp"
)

// Known labels. Anything else from the model is coerced to the default.
const (
	LabelCreateRequest   = "create_request"
	LabelModifyRequest   = "modify_request"
	LabelCancelRequest   = "cancel_request"
	LabelStatusInquiry   = "status_inquiry"
	LabelGeneralQuestion = "general_question"
)

var knownLabels = map[string]bool{
	LabelCreateRequest:   true,
	LabelModifyRequest:   true,
	LabelCancelRequest:   true,
	LabelStatusInquiry:   true,
	LabelGeneralQuestion: true,
}

// Classification is the labeling verdict for one utterance.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Config holds connection settings for the classification service.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Classifier calls an OpenAI-compatible chat completions endpoint.
type Classifier struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewClassifier creates a classifier with sensible defaults filled in.
func NewClassifier(cfg Config, logger *zap.Logger) *Classifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Classifier{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

const systemPrompt = `You label messages sent to a private jet charter desk.
Reply with a single JSON object: {"label": "...", "confidence": 0.0-1.0, "rationale": "..."}.
Valid labels: create_request, modify_request, cancel_request, status_inquiry, general_question.
A message describing a trip, route, dates, or passengers is create_request.`

// Classify labels one utterance given recent conversation turns. It
// never returns an error for service failures; those fall back to the
// default label so the conversation keeps moving.
func (c *Classifier) Classify(ctx context.Context, utterance string, recent []rfp.Turn) Classification {
	result, err := c.call(ctx, utterance, recent)
	if err != nil {
		c.logger.Warn("intent classification failed, using default label",
			zap.Error(err))
		return fallback()
	}
	if !knownLabels[result.Label] {
		c.logger.Warn("intent service returned unknown label",
			zap.String("label", result.Label))
		return fallback()
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		result.Confidence = 0.5
	}
	return result
}

func fallback() Classification {
	return Classification{
		Label:      LabelCreateRequest,
		Confidence: 0.3,
		Rationale:  "classification unavailable, assuming request creation",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Classifier) call(ctx context.Context, utterance string, recent []rfp.Turn) (Classification, error) {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	// Only the last few turns matter for disambiguating a label.
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	for _, turn := range recent {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: utterance})

	body, err := json.Marshal(chatRequest{
		Model:     c.config.Model,
		Messages:  messages,
		MaxTokens: 200,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Classification{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Classification{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Classification{}, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Classification{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Classification{}, fmt.Errorf("empty response from classifier")
	}

	return parseVerdict(chatResp.Choices[0].Message.Content)
}

// parseVerdict pulls the JSON object out of the model's reply, which
// may be wrapped in a markdown code fence.
func parseVerdict(content string) (Classification, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var verdict Classification
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return Classification{}, fmt.Errorf("parse verdict: %w", err)
	}
	return verdict, nil
}
