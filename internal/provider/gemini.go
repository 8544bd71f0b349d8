package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
	"snnap-backend/internal/utils"
	"snnap-backend/pkg/logger"
)

const (
	geminiTemperature     = 0.7
	geminiMaxOutputTokens = 40000
)

// Gemini has no multi-turn message array: the whole conversation is
// flattened into a single parts list with "user:"/"model:" turn markers, and
// images become inline_data blocks.
type Gemini struct {
	key    string
	cfg    config.ProviderConfig
	client *http.Client
}

func NewGemini(key string, cfg config.ProviderConfig) *Gemini {
	return &Gemini{key: key, cfg: cfg, client: utils.NewStreamingClient()}
}

func (p *Gemini) Name() string {
	return "gemini"
}

func (p *Gemini) Stream(ctx context.Context, conv *model.Conversation) (TextStream, error) {
	body, err := json.Marshal(buildGeminiRequest(conv))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?key=%s",
		strings.TrimSuffix(p.cfg.BaseURL, "/"), p.cfg.Model, url.QueryEscape(p.key))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, model.MapUpstreamStatus(resp.StatusCode)
	}

	return newGeminiStream(resp.Body), nil
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func buildGeminiRequest(conv *model.Conversation) geminiRequest {
	var parts []geminiPart

	if conv.System != "" {
		parts = append(parts, geminiPart{Text: conv.System})
	}

	for _, m := range conv.Messages {
		marker := "\n\nuser: "
		if m.Role == model.RoleAssistant {
			marker = "\n\nmodel: "
		}

		if !m.Content.IsMultimodal() {
			parts = append(parts, geminiPart{Text: marker + m.Content.Text})
			continue
		}

		text := marker
		var images []geminiPart
		for _, part := range m.Content.Parts {
			switch part.Type {
			case model.PartTypeImageURL:
				if part.ImageURL == nil {
					continue
				}
				mime, data, ok := parseDataURL(part.ImageURL.URL)
				if !ok {
					logger.Warnf("gemini: skipping non data-URL image attachment")
					continue
				}
				images = append(images, geminiPart{
					InlineData: &geminiInlineData{MimeType: mime, Data: data},
				})
			default:
				text += part.Text
			}
		}
		parts = append(parts, geminiPart{Text: text})
		parts = append(parts, images...)
	}

	return geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenConfig{
			Temperature:     geminiTemperature,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
	}
}

// geminiStream reads the provider's streamed JSON array: one candidate
// fragment per line, wrapped in "["/","/"]" array punctuation that has to be
// trimmed before each fragment parses on its own.
type geminiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func newGeminiStream(body io.ReadCloser) *geminiStream {
	scanner := bufio.NewScanner(body)
	// Fragments carry whole HTML documents; the default 64K line cap is not
	// enough.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &geminiStream{body: body, scanner: scanner}
}

func (s *geminiStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		line = strings.TrimPrefix(line, "[")
		line = strings.TrimPrefix(line, ",")
		line = strings.TrimSuffix(line, "]")
		line = strings.TrimSuffix(line, ",")
		if line == "" {
			continue
		}

		var chunk geminiChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// One bad fragment must never kill the response.
			logger.Debugf("gemini: skipping unparseable fragment: %v", err)
			continue
		}

		var text strings.Builder
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				text.WriteString(part.Text)
			}
		}
		if text.Len() == 0 {
			continue
		}
		return text.String(), nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	// No terminator sentinel from Gemini; the stream simply ends.
	return "", io.EOF
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}
