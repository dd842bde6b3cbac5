package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/workflow"
)

type fieldRequest struct {
	Path   string          `json:"path" binding:"required"`
	Value  json.RawMessage `json:"value"`
	Source string          `json:"source"`
}

type markRequest struct {
	Path   string `json:"path" binding:"required"`
	Marked *bool  `json:"marked" binding:"required"`
}

type noteRequest struct {
	Path string `json:"path" binding:"required"`
	Text string `json:"text"`
}

type transitionRequest struct {
	Event string `json:"event" binding:"required"`
}

// decodeValue turns a raw JSON value into a brief.Value. Numbers keep their
// literal form; an absent or null value is Null.
func decodeValue(raw json.RawMessage) (brief.Value, error) {
	if len(raw) == 0 {
		return brief.Null{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return brief.FromAny(v)
}

// Brief handlers

func (s *Server) handleList(c *gin.Context) {
	list, err := s.svc.List(c.Request.Context(), identity(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"briefs": list,
		"count":  len(list),
	})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req workflow.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.svc.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *Server) handleImport(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	b, err := brief.Unmarshal(data)
	if err != nil {
		badRequest(c, err)
		return
	}
	stored, err := s.svc.ImportBrief(c.Request.Context(), identity(c), b)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleGet(c *gin.Context) {
	b, err := s.svc.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Lifecycle handlers

func (s *Server) handleTransitions(c *gin.Context) {
	events, err := s.svc.Available(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": events})
}

func (s *Server) handleTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ev, err := lifecycle.ParseEvent(req.Event)
	if err != nil {
		s.writeError(c, err)
		return
	}
	b, err := s.svc.Transition(c.Request.Context(), identity(c), c.Param("id"), ev)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleHistory(c *gin.Context) {
	history, err := s.svc.StatusHistory(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Ledger handlers

func (s *Server) handleFieldEdit(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := decodeValue(req.Value)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx, id, briefID := c.Request.Context(), identity(c), c.Param("id")
	var b *brief.Brief
	switch req.Source {
	case "", string(brief.SourceAdvisor):
		b, err = s.svc.AdvisorEdit(ctx, id, briefID, req.Path, v)
	case string(brief.SourceDocument), string(brief.SourceAI):
		b, err = s.svc.ImportField(ctx, id, briefID, req.Path, v, brief.Source(req.Source))
	default:
		badRequest(c, fmt.Errorf("source %q cannot be written here", req.Source))
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleMark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.svc.MarkForClientInput(c.Request.Context(), identity(c), c.Param("id"), req.Path, *req.Marked)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := s.svc.SetNote(c.Request.Context(), identity(c), c.Param("id"), req.Path, req.Text)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Read-only projections

func (s *Server) handleAudit(c *gin.Context) {
	mode, err := audit.ParseMode(c.Query("mode"))
	if err != nil {
		badRequest(c, err)
		return
	}
	view, err := s.svc.Audit(c.Request.Context(), identity(c), c.Param("id"), mode)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCompletion(c *gin.Context) {
	report, err := s.svc.Evaluate(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sections":    report.Sections,
		"submittable": report.Submittable,
		"issues":      report.Issues(),
	})
}

func (s *Server) handleSignals(c *gin.Context) {
	signals, err := s.svc.Signals(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}
