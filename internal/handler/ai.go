package handler

import (
	"context"
	"errors"
	"net/http"

	"snnap-backend/internal/config"
	"snnap-backend/internal/model"
	"snnap-backend/internal/relay"
	"snnap-backend/internal/utils"
	"snnap-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	relay *relay.Service
	cfg   *config.Config
}

func NewAIHandler(relayService *relay.Service, cfg *config.Config) *AIHandler {
	return &AIHandler{relay: relayService, cfg: cfg}
}

// StreamGenerate relays one page generation: it opens the provider stream
// and forwards normalized frames as SSE until exhaustion. Failures before
// the first frame produce a plain JSON error; after that the stream just
// ends with [DONE].
func (h *AIHandler) StreamGenerate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.Stream.Timeout)
	defer cancel()

	gen, err := h.relay.Generate(ctx, &req)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Erro ao conectar ao provedor de IA"
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Status
			message = apiErr.Message
		}
		logger.Warnf("generation rejected: %v", err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	sse := utils.NewSSEWriter(c.Writer)

	for {
		select {
		case frame, ok := <-gen.Frames:
			if !ok {
				sse.Done()
				return
			}
			if err := sse.WriteDelta(frame); err != nil {
				// Browser went away; ctx cancellation tears down upstream.
				logger.Debugf("client disconnected: %v", err)
				return
			}

		case err := <-gen.Errs:
			logger.Warnf("generation aborted: %v", err)
			sse.Done()
			return

		case <-ctx.Done():
			sse.Done()
			return
		}
	}
}
