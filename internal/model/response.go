package model

// StreamFrame is the OpenAI-shaped delta every provider's output is rewritten
// into before reaching the browser, so a single client code path works against
// all providers.
type StreamFrame struct {
	Choices []FrameChoice `json:"choices"`
}

type FrameChoice struct {
	Delta FrameDelta `json:"delta"`
}

type FrameDelta struct {
	Content string `json:"content"`
}

func NewStreamFrame(content string) StreamFrame {
	return StreamFrame{Choices: []FrameChoice{{Delta: FrameDelta{Content: content}}}}
}
