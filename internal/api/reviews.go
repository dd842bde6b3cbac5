package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/completion"
	"github.com/roach88/briefs/internal/fieldpath"
	"github.com/roach88/briefs/internal/review"
)

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type viewRequest struct {
	Path    string `json:"path" binding:"required"`
	Visible *bool  `json:"visible" binding:"required"`
}

type editorRequest struct {
	Path string `json:"path" binding:"required"`
	Open *bool  `json:"open" binding:"required"`
}

// reviewView is the client-facing state of a guided review session.
type reviewView struct {
	SessionID string            `json:"sessionId"`
	Brief     *brief.Brief      `json:"brief"`
	Report    completion.Report `json:"report"`
	Issues    []string          `json:"issues"`
	Dirty     bool              `json:"dirty"`
	InFlight  bool              `json:"inFlight"`
}

func viewOf(sess *review.Session) reviewView {
	b := sess.Brief()
	report := sess.Report()
	issues := report.Issues()
	if issues == nil {
		issues = []string{}
	}
	return reviewView{
		SessionID: sess.ID(),
		Brief:     b,
		Report:    report,
		Issues:    issues,
		Dirty:     sess.Dirty(),
		InFlight:  sess.InFlight(),
	}
}

// session resolves the :sid parameter for the caller.
func (s *Server) session(c *gin.Context) (*review.Session, bool) {
	sess, err := s.svc.Review(identity(c), c.Param("sid"))
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return sess, true
}

// bindPath binds a request with a path field and parses it.
func bindPath[T any](c *gin.Context, req *T, raw func(*T) string) (fieldpath.Path, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return fieldpath.Path{}, false
	}
	p, err := fieldpath.Parse(raw(req))
	if err != nil {
		badRequest(c, err)
		return fieldpath.Path{}, false
	}
	return p, true
}

func (s *Server) handleOpenReview(c *gin.Context) {
	sess, err := s.svc.OpenReview(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(sess))
}

func (s *Server) handleReviewState(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleCloseReview(c *gin.Context) {
	if err := s.svc.CloseReview(c.Request.Context(), identity(c), c.Param("sid")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReviewConfirm(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req pathRequest
	p, ok := bindPath(c, &req, func(r *pathRequest) string { return r.Path })
	if !ok {
		return
	}
	if err := sess.Confirm(c.Request.Context(), p); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleReviewEdit(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req fieldRequest
	p, ok := bindPath(c, &req, func(r *fieldRequest) string { return r.Path })
	if !ok {
		return
	}
	v, err := decodeValue(req.Value)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := sess.Edit(c.Request.Context(), p, v); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleReviewView(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req viewRequest
	p, ok := bindPath(c, &req, func(r *viewRequest) string { return r.Path })
	if !ok {
		return
	}
	if *req.Visible {
		sess.EnterView(p)
		c.JSON(http.StatusOK, gin.H{"confirmed": false})
		return
	}
	confirmed, err := sess.LeaveView(c.Request.Context(), p)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": confirmed})
}

func (s *Server) handleReviewEditor(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req editorRequest
	p, ok := bindPath(c, &req, func(r *editorRequest) string { return r.Path })
	if !ok {
		return
	}
	if *req.Open {
		sess.OpenEditor(p)
	} else {
		sess.CloseEditor(p)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReviewNote(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req noteRequest
	p, ok := bindPath(c, &req, func(r *noteRequest) string { return r.Path })
	if !ok {
		return
	}
	if err := sess.SetNote(p, req.Text); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleReviewSave(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var mode review.SaveMode
	switch m := c.DefaultQuery("mode", "explicit"); m {
	case "explicit":
		mode = review.SaveExplicit
	case "silent":
		mode = review.SaveSilent
	default:
		badRequest(c, fmt.Errorf("invalid save mode %q: must be explicit or silent", m))
		return
	}
	if err := sess.Save(c.Request.Context(), mode); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *Server) handleReviewSubmit(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	b, err := sess.Submit(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
