package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
	"snnap-backend/internal/utils"
	"snnap-backend/pkg/logger"
)

const (
	claudeAPIVersion  = "2023-06-01"
	claudeMaxTokens   = 40000
	claudeTemperature = 0.3
)

// Claude keeps the message array but needs image parts rewritten into its
// base64 source blocks, and takes the system prompt as a dedicated top-level
// field instead of a conversation turn.
type Claude struct {
	key    string
	cfg    config.ProviderConfig
	client *http.Client
}

func NewClaude(key string, cfg config.ProviderConfig) *Claude {
	return &Claude{key: key, cfg: cfg, client: utils.NewStreamingClient()}
}

func (p *Claude) Name() string {
	return "claude"
}

func (p *Claude) Stream(ctx context.Context, conv *model.Conversation) (TextStream, error) {
	body, err := json.Marshal(buildClaudeRequest(p.cfg.Model, conv))
	if err != nil {
		return nil, fmt.Errorf("claude: marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claude: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.key)
	req.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, model.MapUpstreamStatus(resp.StatusCode)
	}

	return newClaudeStream(resp.Body), nil
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
	Stream      bool            `json:"stream"`
	System      string          `json:"system"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type claudeContentPart struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func buildClaudeRequest(modelName string, conv *model.Conversation) claudeRequest {
	messages := make([]claudeMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if !m.Content.IsMultimodal() {
			messages = append(messages, claudeMessage{Role: m.Role, Content: m.Content.Text})
			continue
		}

		var parts []claudeContentPart
		for _, part := range m.Content.Parts {
			switch part.Type {
			case model.PartTypeImageURL:
				if part.ImageURL == nil {
					continue
				}
				mime, data, ok := parseDataURL(part.ImageURL.URL)
				if !ok {
					logger.Warnf("claude: skipping non data-URL image attachment")
					continue
				}
				parts = append(parts, claudeContentPart{
					Type:   "image",
					Source: &claudeSource{Type: "base64", MediaType: mime, Data: data},
				})
			default:
				parts = append(parts, claudeContentPart{Type: "text", Text: part.Text})
			}
		}
		messages = append(messages, claudeMessage{Role: m.Role, Content: parts})
	}

	return claudeRequest{
		Model:       modelName,
		MaxTokens:   claudeMaxTokens,
		Temperature: claudeTemperature,
		Stream:      true,
		System:      conv.System,
		Messages:    messages,
	}
}

// claudeStream reads Anthropic SSE. Only content_block_delta events carry
// text; message_start, content_block_start and the rest are skipped without
// error.
type claudeStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

type claudeEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func newClaudeStream(body io.ReadCloser) *claudeStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &claudeStream{body: body, scanner: scanner}
}

func (s *claudeStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event claudeEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			logger.Debugf("claude: skipping unparseable event: %v", err)
			continue
		}
		if event.Type != "content_block_delta" {
			continue
		}
		return event.Delta.Text, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *claudeStream) Close() error {
	return s.body.Close()
}
