package handlers

import (
  "net/http"
  "time"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/jenny-backend/internal/calendar"
  "github.com/yungbote/jenny-backend/internal/logger"
)

type CalendarHandler struct {
  log     *logger.Logger
  gateway *calendar.Gateway
  oauth   *calendar.OAuthManager
}

func NewCalendarHandler(log *logger.Logger, gateway *calendar.Gateway, oauth *calendar.OAuthManager) *CalendarHandler {
  return &CalendarHandler{
    log:     log.With("handler", "Calendar"),
    gateway: gateway,
    oauth:   oauth,
  }
}

// Connect redirects the user to the provider's consent screen.
func (h *CalendarHandler) Connect(c *gin.Context) {
  if h.oauth == nil {
    c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calendar connections not configured"})
    return
  }
  provider := c.Param("provider")
  userID := c.Query("user_id")
  if userID == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
    return
  }
  url, err := h.oauth.ConnectURL(provider, userID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.Redirect(http.StatusTemporaryRedirect, url)
}

// OAuthCallback receives the provider redirect and stores the tokens. The
// user ID rides in the state parameter set by Connect.
func (h *CalendarHandler) OAuthCallback(c *gin.Context) {
  if h.oauth == nil {
    c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calendar connections not configured"})
    return
  }
  code := c.Query("code")
  userID := c.Query("state")
  if code == "" || userID == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "code and state required"})
    return
  }
  if err := h.oauth.HandleCallback(c.Request.Context(), calendar.ProviderGoogle, userID, code); err != nil {
    h.log.Error("oauth callback failed", "user_id", userID, "error", err)
    c.JSON(http.StatusBadGateway, gin.H{"error": "calendar connection failed"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"status": "connected", "provider": calendar.ProviderGoogle})
}

// Events lists the merged calendar for a window; defaults to the next 7 days.
func (h *CalendarHandler) Events(c *gin.Context) {
  userID := c.Query("user_id")
  if userID == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
    return
  }
  now := time.Now()
  start := now
  end := now.AddDate(0, 0, 7)
  if v := c.Query("start"); v != "" {
    if t, err := time.Parse(time.RFC3339, v); err == nil {
      start = t
    }
  }
  if v := c.Query("end"); v != "" {
    if t, err := time.Parse(time.RFC3339, v); err == nil {
      end = t
    }
  }

  events, err := h.gateway.ListEvents(c.Request.Context(), userID, start, end)
  if err != nil {
    if _, ok := err.(*calendar.ErrNotConnected); ok {
      c.JSON(http.StatusOK, gin.H{"events": []any{}, "connected": false})
      return
    }
    h.log.Error("calendar list failed", "user_id", userID, "error", err)
    c.JSON(http.StatusBadGateway, gin.H{"error": "calendar unavailable"})
    return
  }
  c.JSON(http.StatusOK, gin.H{"events": events, "connected": true})
}
