package handlers

import (
  "encoding/xml"
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/services"
)

// TwilioHandler is the inbound messaging channel: Twilio posts each SMS or
// WhatsApp message here and the reply goes back as TwiML.
type TwilioHandler struct {
  log   *logger.Logger
  convo *services.Conversation
}

func NewTwilioHandler(log *logger.Logger, convo *services.Conversation) *TwilioHandler {
  return &TwilioHandler{log: log.With("handler", "Twilio"), convo: convo}
}

type twiml struct {
  XMLName xml.Name `xml:"Response"`
  Message string   `xml:"Message"`
}

// Webhook maps the sender's phone number to the user ID. Voice notes arrive
// as MediaUrl0 with an audio content type.
func (h *TwilioHandler) Webhook(c *gin.Context) {
  from := strings.TrimSpace(c.PostForm("From"))
  body := strings.TrimSpace(c.PostForm("Body"))
  mediaURL := strings.TrimSpace(c.PostForm("MediaUrl0"))
  mediaType := strings.ToLower(strings.TrimSpace(c.PostForm("MediaContentType0")))

  if from == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "From required"})
    return
  }

  in := services.Incoming{UserID: from, Text: body}
  if body == "" && mediaURL != "" {
    if strings.HasPrefix(mediaType, "audio/") {
      in.VoiceURL = mediaURL
    } else if strings.HasPrefix(mediaType, "image/") {
      in.ImageURL = mediaURL
    }
  }

  result, err := h.convo.Handle(c.Request.Context(), in)
  if err != nil {
    h.log.Error("twilio webhook failed", "from", from, "error", err)
    c.XML(http.StatusOK, twiml{Message: "Sorry, something went wrong on my end."})
    return
  }
  c.XML(http.StatusOK, twiml{Message: result.Reply})
}
