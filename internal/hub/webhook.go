package hub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hazukari/sc3kit/internal/workflow"
)

// Webhook headers, named the way forges send them.
const (
	headerEvent     = "X-Forge-Event"
	headerSignature = "X-Hub-Signature-256"
)

// maxWebhookBody caps payload reads. Push payloads are a few KB; anything
// near the cap is not a webhook.
const maxWebhookBody = 1 << 20

// pushPayload is the slice of a forge push event the pipeline needs.
type pushPayload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	HeadCommit *struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"head_commit"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
}

// prPayload is the slice of a forge pull_request event the pipeline needs.
type prPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Title string `json:"title"`
	} `json:"pull_request"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.countWebhook("unknown", "error")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	event := c.GetHeader(headerEvent)
	if event == "" {
		s.countWebhook("unknown", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + headerEvent + " header"})
		return
	}

	if s.settings.WebhookSecret != "" {
		if !verifySignature(body, c.GetHeader(headerSignature), s.settings.WebhookSecret) {
			s.countWebhook(event, "rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}
	}

	if event == "ping" {
		s.countWebhook(event, "accepted")
		c.JSON(http.StatusOK, gin.H{"status": "pong"})
		return
	}

	ev, err := normalizeEvent(event, body)
	if err != nil {
		s.countWebhook(event, "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := s.workflow.Evaluate(ev)
	if !decision.Matched {
		s.countWebhook(event, "ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": decision.Reason})
		return
	}

	position, err := s.enqueue(ev)
	if err != nil {
		s.countWebhook(event, "dropped")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	s.countWebhook(event, "accepted")
	s.logger.Info().
		Str("event", event).
		Str("branch", ev.BranchName()).
		Str("reason", decision.Reason).
		Int("queue_position", position).
		Msg("webhook accepted")
	c.JSON(http.StatusAccepted, gin.H{
		"status":         "queued",
		"reason":         decision.Reason,
		"queue_position": position,
	})
}

// normalizeEvent turns a raw webhook payload into a pipeline event.
func normalizeEvent(event string, body []byte) (workflow.Event, error) {
	switch event {
	case workflow.EventPush:
		var p pushPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return workflow.Event{}, fmt.Errorf("bad %s payload: %w", event, err)
		}
		ev := workflow.Event{
			Kind:  workflow.EventPush,
			Ref:   p.Ref,
			SHA:   p.After,
			Actor: p.Pusher.Name,
		}
		if p.HeadCommit != nil {
			ev.Message = p.HeadCommit.Message
			if ev.SHA == "" {
				ev.SHA = p.HeadCommit.ID
			}
		}
		return ev, nil

	case workflow.EventPullRequest:
		var p prPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return workflow.Event{}, fmt.Errorf("bad %s payload: %w", event, err)
		}
		return workflow.Event{
			Kind:    workflow.EventPullRequest,
			Action:  p.Action,
			Branch:  p.PullRequest.Base.Ref,
			SHA:     p.PullRequest.Head.SHA,
			Message: p.PullRequest.Title,
			Actor:   p.Sender.Login,
		}, nil

	default:
		return workflow.Event{}, fmt.Errorf("unsupported event %s", event)
	}
}

// verifySignature checks the hex HMAC-SHA256 header against the body.
func verifySignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

func (s *Server) countWebhook(event, outcome string) {
	s.metrics.WebhookEvents.WithLabelValues(event, outcome).Inc()
}
