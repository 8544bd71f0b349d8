package handler

import (
	"net/http"

	"snnap-backend/internal/stats"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	collector *stats.Collector
}

func NewStatsHandler(collector *stats.Collector) *StatsHandler {
	return &StatsHandler{collector: collector}
}

func (h *StatsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.collector.Snapshot(),
	})
}
