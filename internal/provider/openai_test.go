package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOpenAIMessagesPassthrough(t *testing.T) {
	conv := &model.Conversation{
		System: "prompt do sistema",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: model.MessageContent{Text: "crie uma pagina"}},
			{Role: model.RoleUser, Content: model.MessageContent{Parts: []model.ContentPart{
				{Type: model.PartTypeText, Text: "com esta imagem"},
				{Type: model.PartTypeImageURL, ImageURL: &model.ImageURL{URL: "data:image/png;base64,QUJD"}},
			}}},
		},
	}

	messages := buildOpenAIMessages(conv)

	require.Len(t, messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Equal(t, "prompt do sistema", messages[0].Content)

	assert.Equal(t, "crie uma pagina", messages[1].Content)

	// Multimodal content stays an array; OpenAI accepts it natively.
	require.Len(t, messages[2].MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, messages[2].MultiContent[0].Type)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, messages[2].MultiContent[1].Type)
	assert.Equal(t, "data:image/png;base64,QUJD", messages[2].MultiContent[1].ImageURL.URL)
}

func TestMapOpenAIErrorStatuses(t *testing.T) {
	tests := []struct {
		upstream int
		want     int
	}{
		{http.StatusUnauthorized, http.StatusUnauthorized},
		{http.StatusTooManyRequests, http.StatusTooManyRequests},
		{http.StatusPaymentRequired, http.StatusPaymentRequired},
		{http.StatusBadGateway, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := mapOpenAIError(&openai.APIError{HTTPStatusCode: tt.upstream})
		var apiErr *model.APIError
		require.ErrorAs(t, err, &apiErr, "upstream %d", tt.upstream)
		assert.Equal(t, tt.want, apiErr.Status)
	}
}

func TestMapOpenAIErrorPassesUnknownThrough(t *testing.T) {
	err := mapOpenAIError(fmt.Errorf("connection refused"))

	var apiErr *model.APIError
	assert.False(t, errors.As(err, &apiErr), "transport errors are not user-facing API errors")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestOpenAIStreamEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Ola\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" mundo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", config.ProviderConfig{BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	stream, err := p.Stream(context.Background(), &model.Conversation{
		System:   "sys",
		Messages: []model.Message{{Role: model.RoleUser, Content: model.MessageContent{Text: "oi"}}},
	})
	require.NoError(t, err)
	defer stream.Close()

	var deltas []string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		deltas = append(deltas, delta)
	}

	assert.Equal(t, []string{"Ola", " mundo"}, deltas)
}

func TestOpenAIStreamAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAI("bad", config.ProviderConfig{BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	_, err := p.Stream(context.Background(), &model.Conversation{
		Messages: []model.Message{{Role: model.RoleUser, Content: model.MessageContent{Text: "oi"}}},
	})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Token da API inválido")
}
