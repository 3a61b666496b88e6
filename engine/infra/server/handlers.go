package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillflow/quillflow/engine/core"
)

type executeRequest struct {
	Input core.Input `json:"input"`
}

// executeWorkflow runs the workflow synchronously and returns the finished
// run result. A failed run is a 422 carrying the structured error; requests
// that never reached a run (unknown workflow) map to 404.
func (s *Server) executeWorkflow(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}
	workflowID := core.ID(c.Param("id"))
	result, err := s.orchestrator.Execute(c.Request.Context(), workflowID, req.Input)
	if err != nil {
		if result == nil {
			c.JSON(statusForError(err), gin.H{"error": core.AsError(err)})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getWorkflow(c *gin.Context) {
	cfg, err := s.store.LoadWorkflow(c.Request.Context(), core.ID(c.Param("id")))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": core.AsError(err)})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) getRun(c *gin.Context) {
	result, err := s.store.GetRunResult(c.Request.Context(), core.ID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": core.AsError(err)})
		return
	}
	c.JSON(http.StatusOK, result)
}

// getToolSignature exposes the derived signature; for LLM tools this reflects
// the template at the time of the request.
func (s *Server) getToolSignature(c *gin.Context) {
	def, err := s.store.GetTool(c.Request.Context(), core.ID(c.Param("id")))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": core.AsError(err)})
		return
	}
	sig, err := def.Signature(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": core.AsError(err)})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func statusForError(err error) int {
	switch {
	case core.IsCode(err, core.CodeInvalidWorkflow),
		core.IsCode(err, core.CodeToolNotFound),
		core.IsCode(err, core.CodeTemplateNotFound),
		core.IsCode(err, core.CodeFileNotFound):
		return http.StatusNotFound
	case core.IsCode(err, core.CodeVariableValidation),
		core.IsCode(err, core.CodeInvalidStepConfiguration),
		core.IsCode(err, core.CodeMissingToken),
		core.IsCode(err, core.CodeUnresolvedBinding):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
