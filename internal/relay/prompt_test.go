package relay

import (
	"testing"

	"snnap-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareConversationFiltersSystemTurns(t *testing.T) {
	messages := []model.Message{
		{Role: model.RoleSystem, Content: model.MessageContent{Text: "HTML ATUAL: <html><body>velho</body></html>"}},
		{Role: model.RoleUser, Content: model.MessageContent{Text: "mude a cor do fundo"}},
		{Role: model.RoleAssistant, Content: model.MessageContent{Text: "claro!"}},
	}

	conv := PrepareConversation(messages, "")

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)

	// Edit context rides inside the single merged system prompt, never as a
	// conversation turn.
	assert.Contains(t, conv.System, "HTML ATUAL: <html><body>velho</body></html>")
	assert.Contains(t, conv.System, "assistente de criação de páginas")
}

func TestPrepareConversationMergesMultipleSystemMessages(t *testing.T) {
	messages := []model.Message{
		{Role: model.RoleSystem, Content: model.MessageContent{Text: "contexto A"}},
		{Role: model.RoleSystem, Content: model.MessageContent{Text: "contexto B"}},
		{Role: model.RoleUser, Content: model.MessageContent{Text: "oi"}},
	}

	conv := PrepareConversation(messages, "")

	assert.Contains(t, conv.System, "contexto A")
	assert.Contains(t, conv.System, "contexto B")
	require.Len(t, conv.Messages, 1)
}

func TestPrepareConversationPromptOverride(t *testing.T) {
	conv := PrepareConversation([]model.Message{
		{Role: model.RoleUser, Content: model.MessageContent{Text: "oi"}},
	}, "prompt customizado")

	assert.Equal(t, "prompt customizado", conv.System)
}
