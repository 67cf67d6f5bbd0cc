package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/services"
)

type AskHandler struct {
  log   *logger.Logger
  convo *services.Conversation
}

func NewAskHandler(log *logger.Logger, convo *services.Conversation) *AskHandler {
  return &AskHandler{log: log.With("handler", "Ask"), convo: convo}
}

type askRequest struct {
  UserID   string `json:"user_id" binding:"required"`
  Text     string `json:"text"`
  VoiceURL string `json:"voice_url"`
  ImageURL string `json:"image_url"`
}

// Ask accepts one message (text, voice note URL, or image URL) and returns
// the assistant's reply plus the agent that produced it.
func (h *AskHandler) Ask(c *gin.Context) {
  var req askRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
    return
  }
  if req.Text == "" && req.VoiceURL == "" && req.ImageURL == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "one of text, voice_url, image_url is required"})
    return
  }

  result, err := h.convo.Handle(c.Request.Context(), services.Incoming{
    UserID:   req.UserID,
    Text:     req.Text,
    VoiceURL: req.VoiceURL,
    ImageURL: req.ImageURL,
  })
  if err != nil {
    h.log.Error("ask failed", "user_id", req.UserID, "error", err)
    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
    return
  }
  c.JSON(http.StatusOK, result)
}
