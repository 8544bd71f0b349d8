package model

// GenerateRequest is the inbound body of POST /api/ai/stream.
type GenerateRequest struct {
	Messages []Message `json:"messages" binding:"required"`
	APIKeys  APIKeys   `json:"apiKeys"`
}

// APIKeys carries the caller's provider credentials. Any key left empty
// falls back to the server-side configuration.
type APIKeys struct {
	OpenAI string `json:"openai"`
	Gemini string `json:"gemini"`
	Claude string `json:"claude"`
}
