package hub

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/workflow"
)

const defaultListLimit = 50

type dispatchRequest struct {
	Version string `json:"version"`
	Ref     string `json:"ref,omitempty"`
	Actor   string `json:"actor,omitempty"`
}

func (s *Server) handleDispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad dispatch request: " + err.Error()})
		return
	}

	req.Version = strings.TrimSpace(req.Version)
	if req.Version == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "dispatch requires a version"})
		return
	}
	if !s.workflow.ValidVersion(req.Version) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "version " + req.Version + " does not match " + s.workflow.Release.TokenPrefix + "<major>.<minor>.<patch>",
		})
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "api"
	}
	ev := workflow.Event{
		Kind:    workflow.EventDispatch,
		Ref:     req.Ref,
		Version: req.Version,
		Actor:   actor,
	}

	decision := s.workflow.Evaluate(ev)
	if !decision.Matched {
		c.JSON(http.StatusConflict, gin.H{"error": decision.Reason})
		return
	}

	position, err := s.enqueue(ev)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info().
		Str("version", req.Version).
		Str("actor", actor).
		Int("queue_position", position).
		Msg("dispatch accepted")
	c.JSON(http.StatusAccepted, gin.H{
		"status":         "queued",
		"version":        req.Version,
		"queue_position": position,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)

	var (
		runs []registry.Run
		err  error
	)
	if q := c.Query("q"); q != "" {
		runs, err = s.registry.SearchRuns(c.Request.Context(), q, limit)
	} else {
		runs, err = s.registry.ListRuns(c.Request.Context(), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a number"})
		return
	}

	run, err := s.registry.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListReleases(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)
	releases, err := s.registry.ListReleases(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"releases": releases})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
