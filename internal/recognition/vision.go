package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// visionPrompt asks for the table as JSON in the shape ParseJSON accepts
const visionPrompt = `Extract the main table from this document image.
Respond with JSON only, in the form {"columns": ["..."], "rows": [["..."]]}.
Keep cell text exactly as printed, including currency symbols. Use "" for empty cells.`

// VisionConfig configures the AI vision client
type VisionConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	Timeout   time.Duration
	MaxTokens int
}

type visionContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// VisionRecognizer sends the image to an OpenAI compatible chat completions
// endpoint and parses the table it answers with.
type VisionRecognizer struct {
	cfg    VisionConfig
	client *http.Client
	logger *slog.Logger
}

// NewVisionRecognizer creates a vision client
func NewVisionRecognizer(cfg VisionConfig, logger *slog.Logger) *VisionRecognizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String("component", "vision")),
	}
}

// Recognize returns a structured result when the model answers with JSON and
// a text result otherwise.
func (v *VisionRecognizer) Recognize(ctx context.Context, src Source) (RawResult, error) {
	if v.cfg.APIKey == "" {
		return RawResult{}, fmt.Errorf("vision API key not configured")
	}

	contentType := src.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(src.Data)
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(src.Data)

	reqBody := visionRequest{
		Model:     v.cfg.Model,
		MaxTokens: v.cfg.MaxTokens,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContent{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &visionImageURL{URL: dataURL}},
			},
		}},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return RawResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(v.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return RawResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)

	start := time.Now()
	resp, err := v.client.Do(req)
	if err != nil {
		return RawResult{}, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResult{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return RawResult{}, fmt.Errorf("vision API error (status %d): %s", resp.StatusCode, truncate(string(body), 512))
	}

	var chatResp visionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return RawResult{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return RawResult{}, fmt.Errorf("no response choices returned")
	}

	v.logger.DebugContext(ctx, "vision response received",
		slog.String("source", src.Name),
		slog.String("model", v.cfg.Model),
		slog.Duration("duration", time.Since(start)))

	return Parse([]byte(chatResp.Choices[0].Message.Content))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
