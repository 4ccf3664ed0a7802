package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/query", h.query)
		api.POST("/query/direct", h.queryDirect)
		api.POST("/query/compare", h.queryCompare)
		api.GET("/health", h.health)
		api.GET("/history", h.history)
		api.GET("/queries", h.listQueries)
		api.GET("/queries/:id/logs", h.queryLogs)
	}
}

func (h *Handler) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queryID, resp := h.Service.Ask(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"id": queryID, "result": resp})
}

func (h *Handler) queryDirect(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queryID, resp := h.Service.AskDirect(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, gin.H{"id": queryID, "result": resp})
}

func (h *Handler) queryCompare(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queryID, cmp := h.Service.CompareModes(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"id": queryID, "result": cmp})
}

func (h *Handler) health(c *gin.Context) {
	status := h.Service.Engine.Status(c.Request.Context())
	code := http.StatusOK
	if !status.VectorStoreReady || !status.GeneratorReady {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// history returns the in-process session history, newest first.
func (h *Handler) history(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	c.JSON(http.StatusOK, gin.H{"history": h.Service.History.Recent(n)})
}

func (h *Handler) listQueries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	queries, err := h.Service.ListQueries(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queries": queries})
}

func (h *Handler) queryLogs(c *gin.Context) {
	queryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query id"})
		return
	}

	logs, err := h.Service.GetQueryLogs(c.Request.Context(), queryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
