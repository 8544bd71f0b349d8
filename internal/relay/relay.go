package relay

import (
	"context"
	"errors"
	"io"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
	"snnap-backend/internal/provider"
	"snnap-backend/internal/stats"
	"snnap-backend/pkg/logger"
)

// Service is the relay: one upstream provider stream in, one normalized
// frame stream out. No state survives a request.
type Service struct {
	cfg   *config.Config
	stats *stats.Collector
}

func NewService(cfg *config.Config, collector *stats.Collector) *Service {
	return &Service{cfg: cfg, stats: collector}
}

// Generation is one in-flight relay session. Frames closes at end of stream;
// Errs carries at most one mid-stream failure, after which the response just
// ends (the client handles an incomplete document at the UI layer).
type Generation struct {
	Provider string
	Frames   <-chan string
	Errs     <-chan error
}

// Generate picks a provider, opens the upstream stream and starts the pump.
// Pre-stream failures (no key configured, upstream auth/rate-limit/billing)
// come back as *model.APIError before any frame exists.
func (s *Service) Generate(ctx context.Context, req *model.GenerateRequest) (*Generation, error) {
	p, err := provider.Select(req.APIKeys, &s.cfg.Providers)
	if err != nil {
		return nil, err
	}

	conv := PrepareConversation(req.Messages, s.cfg.Prompt.System)
	logger.WithFields(map[string]interface{}{
		"provider": p.Name(),
		"turns":    len(conv.Messages),
	}).Debug("opening provider stream")

	stream, err := p.Stream(ctx, conv)
	if err != nil {
		s.stats.RecordFailure(p.Name())
		return nil, err
	}
	s.stats.RecordRequest(p.Name())

	frames := make(chan string, 16)
	errs := make(chan error, 1)
	go s.pump(ctx, p.Name(), stream, frames, errs)

	return &Generation{Provider: p.Name(), Frames: frames, Errs: errs}, nil
}

// pump moves text deltas from the provider socket through the boundary
// detector to the frame channel until the upstream is exhausted, the client
// goes away or the deadline fires. Classic single-goroutine pipe.
func (s *Service) pump(ctx context.Context, name string, stream provider.TextStream, frames chan<- string, errs chan<- error) {
	defer close(frames)
	defer stream.Close()

	detector := NewBoundaryDetector()

	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Client disconnect or deadline; the aborted upstream read
				// is the expected consequence, not a provider failure.
				logger.Debugf("%s: stream canceled: %v", name, ctx.Err())
				return
			}
			logger.Warnf("%s: stream aborted mid-response: %v", name, err)
			s.stats.RecordFailure(name)
			errs <- err
			return
		}

		if !s.deliver(ctx, name, detector.Feed(delta), frames) {
			return
		}
	}

	s.deliver(ctx, name, detector.Finish(), frames)
}

func (s *Service) deliver(ctx context.Context, name string, batch []string, frames chan<- string) bool {
	for _, frame := range batch {
		select {
		case frames <- frame:
			s.stats.RecordFrame(name)
		case <-ctx.Done():
			return false
		}
	}
	return true
}
