package relay

import (
	"strings"

	"snnap-backend/internal/model"
)

// defaultSystemPrompt instructs the model to answer with optional chat text,
// TITLE:/SLUG: lines and then a complete standalone HTML document. The UI
// splits chat from markup by the HTML_START/HTML_END sentinels this relay
// inserts, so the prompt forbids markdown fences around the document.
const defaultSystemPrompt = `Você é o assistente de criação de páginas do Snnap. O usuário descreve a página de links que deseja e você gera o documento HTML completo.

Regras:
- Responda primeiro com um comentário curto e amigável sobre o que está criando.
- Em seguida, em linhas separadas, informe "TITLE:" com o título da página e "SLUG:" com um slug em minúsculas.
- Depois gere o documento HTML completo, começando por <!DOCTYPE html>, com todo o CSS embutido em uma tag <style>. Não use arquivos externos.
- A página deve ser responsiva e funcionar sozinha em um único arquivo.
- Não envolva o HTML em blocos de código markdown.
- Quando receber o HTML atual da página (marcado como "HTML ATUAL"), edite esse documento em vez de criar um novo.`

// PrepareConversation rewrites the inbound messages into provider-ready form:
// only user/assistant turns survive, and every system message (the editor
// sends the current page as a system turn prefixed "HTML ATUAL") is merged
// into one system prompt appended to the builder instructions.
func PrepareConversation(messages []model.Message, promptOverride string) *model.Conversation {
	system := defaultSystemPrompt
	if promptOverride != "" {
		system = promptOverride
	}

	conv := &model.Conversation{}
	var editContext []string

	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			if text := m.Content.PlainText(); text != "" {
				editContext = append(editContext, text)
			}
		case model.RoleUser, model.RoleAssistant:
			conv.Messages = append(conv.Messages, m)
		}
	}

	if len(editContext) > 0 {
		system += "\n\n" + strings.Join(editContext, "\n\n")
	}
	conv.System = system

	return conv
}
