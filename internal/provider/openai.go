package provider

import (
	"context"
	"errors"
	"fmt"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
	"snnap-backend/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI streams chat completions through the official wire format. Unlike
// Gemini and Claude this one rides on the go-openai SDK: the SDK's stream
// Recv is already the text-delta iterator the relay needs.
type OpenAI struct {
	key string
	cfg config.ProviderConfig
}

func NewOpenAI(key string, cfg config.ProviderConfig) *OpenAI {
	return &OpenAI{key: key, cfg: cfg}
}

func (p *OpenAI) Name() string {
	return "openai"
}

func (p *OpenAI) Stream(ctx context.Context, conv *model.Conversation) (TextStream, error) {
	clientCfg := openai.DefaultConfig(p.key)
	if p.cfg.BaseURL != "" {
		clientCfg.BaseURL = p.cfg.BaseURL
	}
	clientCfg.HTTPClient = utils.NewStreamingClient()
	client := openai.NewClientWithConfig(clientCfg)

	req := openai.ChatCompletionRequest{
		Model:    p.cfg.Model,
		Messages: buildOpenAIMessages(conv),
		Stream:   true,
	}

	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	return &openaiStream{stream: stream}, nil
}

// buildOpenAIMessages passes the conversation through near-verbatim: OpenAI
// natively accepts multimodal content arrays. The merged system prompt is
// prepended as the single system turn.
func buildOpenAIMessages(conv *model.Conversation) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(conv.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: conv.System,
	})

	for _, m := range conv.Messages {
		msg := openai.ChatCompletionMessage{Role: m.Role}
		if m.Content.IsMultimodal() {
			for _, part := range m.Content.Parts {
				switch part.Type {
				case model.PartTypeImageURL:
					if part.ImageURL == nil {
						continue
					}
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: part.ImageURL.URL},
					})
				default:
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: part.Text,
					})
				}
			}
		} else {
			msg.Content = m.Content.Text
		}
		messages = append(messages, msg)
	}

	return messages
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return model.MapUpstreamStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return model.MapUpstreamStatus(reqErr.HTTPStatusCode)
	}
	return fmt.Errorf("openai: %w", err)
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			// io.EOF on the provider's own [DONE] line.
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
