package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/workflow"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Code     string   `json:"code"`
	Redirect bool     `json:"redirect"`
	Problems []string `json:"problems,omitempty"`
}

var statusByCode = map[string]int{
	workflow.CodeNotFound:           http.StatusNotFound,
	workflow.CodeForbidden:          http.StatusForbidden,
	workflow.CodeWrongStatus:        http.StatusConflict,
	workflow.CodeIncomplete:         http.StatusUnprocessableEntity,
	workflow.CodeInvalidBrief:       http.StatusUnprocessableEntity,
	workflow.CodeInvalidPath:        http.StatusBadRequest,
	workflow.CodeUnknownPath:        http.StatusUnprocessableEntity,
	workflow.CodeInvalidValue:       http.StatusUnprocessableEntity,
	workflow.CodeNothingToConfirm:   http.StatusUnprocessableEntity,
	workflow.CodeReadOnly:           http.StatusConflict,
	workflow.CodeSaveInFlight:       http.StatusConflict,
	workflow.CodeSessionClosed:      http.StatusGone,
	workflow.CodeUnknownProjectType: http.StatusUnprocessableEntity,

	string(lifecycle.ErrCodeUnknownEvent):      http.StatusBadRequest,
	string(lifecycle.ErrCodeForbiddenActor):    http.StatusForbidden,
	string(lifecycle.ErrCodeIllegalTransition): http.StatusConflict,
	string(lifecycle.ErrCodeLockInvariant):     http.StatusConflict,
}

// classify maps a service error to an HTTP status and response body.
func classify(err error) (int, errorResponse) {
	code := workflow.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: workflow.CodeInternal}
	}
	return status, errorResponse{
		Error:    err.Error(),
		Code:     code,
		Redirect: access.IsRedirect(err),
		Problems: workflow.Problems(err),
	}
}

// writeError renders err and aborts the chain.
func (s *Server) writeError(c *gin.Context, err error) {
	status, resp := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// badRequest renders a malformed request.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
}
