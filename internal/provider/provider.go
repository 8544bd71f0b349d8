package provider

import (
	"context"
	"strings"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
)

// TextStream yields plain-text deltas extracted from a provider's native
// streaming wire format. Recv returns io.EOF at end of stream. Malformed
// provider lines are skipped, never surfaced.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// Provider turns a prepared conversation into a live text-delta stream.
// Stream performs the upstream POST; a pre-stream failure comes back as
// *model.APIError so the handler can answer with a plain JSON error before
// any SSE frame is written.
type Provider interface {
	Name() string
	Stream(ctx context.Context, conv *model.Conversation) (TextStream, error)
}

// candidate binds a provider slot to the key that enables it. Selection
// priority lives in the slice order, not in control flow.
type candidate struct {
	key string
	new func(key string) Provider
}

// Select picks the first provider with a non-empty key, request keys taking
// precedence over configured ones. Priority: OpenAI, Gemini, Claude.
func Select(keys model.APIKeys, cfg *config.ProvidersConfig) (Provider, error) {
	candidates := []candidate{
		{
			key: firstNonEmpty(keys.OpenAI, cfg.OpenAI.APIKey),
			new: func(key string) Provider { return NewOpenAI(key, cfg.OpenAI) },
		},
		{
			key: firstNonEmpty(keys.Gemini, cfg.Gemini.APIKey),
			new: func(key string) Provider { return NewGemini(key, cfg.Gemini) },
		},
		{
			key: firstNonEmpty(keys.Claude, cfg.Claude.APIKey),
			new: func(key string) Provider { return NewClaude(key, cfg.Claude) },
		},
	}

	for _, c := range candidates {
		if c.key != "" {
			return c.new(c.key), nil
		}
	}

	return nil, model.ErrNoProviderConfigured
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDataURL splits "data:image/png;base64,AAAA" into media type and
// base64 payload. The UI always attaches images as base64 data URLs.
func parseDataURL(u string) (mediaType, data string, ok bool) {
	rest, found := strings.CutPrefix(u, "data:")
	if !found {
		return "", "", false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	return strings.TrimSuffix(meta, ";base64"), payload, true
}
