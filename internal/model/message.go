package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// Message is one conversation turn as sent by the page builder UI.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent accepts either a plain string or an array of multimodal
// parts, mirroring the OpenAI chat message shape the UI speaks.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	c.Text = ""
	c.Parts = parts
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// IsMultimodal reports whether the content carries structured parts.
func (c MessageContent) IsMultimodal() bool {
	return c.Parts != nil
}

// PlainText flattens the content to text only, dropping image parts.
func (c MessageContent) PlainText() string {
	if c.Parts == nil {
		return c.Text
	}

	var b strings.Builder
	for _, part := range c.Parts {
		if part.Type == PartTypeText && part.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// Conversation is the provider-ready form of a request: user/assistant turns
// plus a single merged system prompt. System messages from the UI (the editor
// sends the current page prefixed "HTML ATUAL") never survive as turns.
type Conversation struct {
	System   string
	Messages []Message
}
