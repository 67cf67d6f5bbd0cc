package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/jenny-backend/internal/clients/gcp"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/router"
)

const (
	audioNotUnderstood = "Sorry, I couldn't make out what was said in that audio. Could you type it instead?"
	imageAck           = "I can't act on images yet, but I can see it."

	maxMediaBytes = 16 << 20
)

// Incoming is one normalized inbound message regardless of channel. Exactly
// one of Text, VoiceURL, or ImageURL should be set; Text wins when several
// are present.
type Incoming struct {
	UserID   string
	Text     string
	VoiceURL string
	ImageURL string
}

// Conversation normalizes voice and image input into text and hands the
// result to the router.
type Conversation struct {
	log    *logger.Logger
	router *router.Router
	speech gcp.Speech
	vision gcp.Vision
	http   *http.Client
}

// NewConversation tolerates nil speech and vision clients; those channels
// then answer with a polite capability message.
func NewConversation(log *logger.Logger, r *router.Router, speech gcp.Speech, vision gcp.Vision) (*Conversation, error) {
	if r == nil {
		return nil, fmt.Errorf("router required")
	}
	return &Conversation{
		log:    log.With("service", "Conversation"),
		router: r,
		speech: speech,
		vision: vision,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Conversation) Handle(ctx context.Context, in Incoming) (*router.Result, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("user_id required")
	}

	text := strings.TrimSpace(in.Text)

	if text == "" && strings.TrimSpace(in.VoiceURL) != "" {
		transcript, err := c.transcribe(ctx, in.VoiceURL)
		if err != nil {
			c.log.Warn("voice transcription failed", "user_id", in.UserID, "error", err)
			return &router.Result{Agent: "voice_transcription", Reply: audioNotUnderstood}, nil
		}
		if transcript == "" {
			return &router.Result{Agent: "voice_transcription", Reply: audioNotUnderstood}, nil
		}
		text = transcript
	}

	if text == "" && strings.TrimSpace(in.ImageURL) != "" {
		return c.describeImage(ctx, in.ImageURL)
	}

	if text == "" {
		return nil, fmt.Errorf("message content required")
	}
	return c.router.Handle(ctx, in.UserID, text)
}

func (c *Conversation) transcribe(ctx context.Context, url string) (string, error) {
	if c.speech == nil {
		return "", fmt.Errorf("speech transcription not configured")
	}
	audio, mimeType, err := c.fetchMedia(ctx, url)
	if err != nil {
		return "", err
	}
	return c.speech.TranscribeAudioBytes(ctx, audio, mimeType)
}

func (c *Conversation) describeImage(ctx context.Context, url string) (*router.Result, error) {
	if c.vision == nil {
		return &router.Result{Agent: "general", Reply: imageAck}, nil
	}
	img, _, err := c.fetchMedia(ctx, url)
	if err != nil {
		c.log.Warn("image fetch failed", "error", err)
		return &router.Result{Agent: "general", Reply: imageAck}, nil
	}
	desc, err := c.vision.DescribeImageBytes(ctx, img)
	if err != nil || (len(desc.Labels) == 0 && desc.Text == "") {
		return &router.Result{Agent: "general", Reply: imageAck}, nil
	}

	var b strings.Builder
	b.WriteString("I can't act on images yet, but this one looks like: ")
	b.WriteString(strings.Join(desc.Labels, ", "))
	if desc.Text != "" {
		b.WriteString(". It contains the text: \"")
		b.WriteString(desc.Text)
		b.WriteString("\"")
	}
	return &router.Result{Agent: "general", Reply: b.String()}, nil
}

func (c *Conversation) fetchMedia(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("media fetch http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}
