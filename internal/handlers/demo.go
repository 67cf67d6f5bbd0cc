package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/memory"
)

// DemoHandler exposes the memory store directly, bypassing the router. Handy
// for exercising the vector path without an LLM in the loop.
type DemoHandler struct {
  log      *logger.Logger
  memories memory.Service
}

func NewDemoHandler(log *logger.Logger, memories memory.Service) *DemoHandler {
  return &DemoHandler{log: log.With("handler", "Demo"), memories: memories}
}

type rememberRequest struct {
  UserID string `json:"user_id" binding:"required"`
  Text   string `json:"text" binding:"required"`
}

func (h *DemoHandler) Remember(c *gin.Context) {
  var req rememberRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
    return
  }
  row, err := h.memories.Remember(c.Request.Context(), req.UserID, req.Text)
  if err != nil {
    h.log.Error("demo remember failed", "user_id", req.UserID, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"id": row.ID, "text": row.Text})
}

func (h *DemoHandler) Search(c *gin.Context) {
  userID := c.Query("user_id")
  query := c.Query("q")
  if userID == "" || query == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and q required"})
    return
  }
  topK := 0
  if v := c.Query("top_k"); v != "" {
    if n, err := strconv.Atoi(v); err == nil {
      topK = n
    }
  }
  hits, err := h.memories.Search(c.Request.Context(), userID, query, topK)
  if err != nil {
    h.log.Error("demo search failed", "user_id", userID, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"hits": hits})
}
