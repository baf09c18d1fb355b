package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finbot-ai/finbot-go/pkg/providers"
	"github.com/finbot-ai/finbot-go/pkg/templates"
	"github.com/finbot-ai/finbot-go/pkg/tenant"
	"github.com/finbot-ai/finbot-go/pkg/userconfig"
)

type createUserRequest struct {
	UserID      string                 `json:"user_id" binding:"required"`
	InitialData map[string]interface{} `json:"initial_data"`
}

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type reportRequest struct {
	ReportType string            `json:"report_type"`
	Extra      map[string]string `json:"extra"`
}

// writeError maps the core error taxonomy onto HTTP status codes and a
// uniform error body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(err, tenant.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, tenant.ErrAlreadyExists):
		status, kind = http.StatusConflict, "already_exists"
	case tenant.IsValidation(err):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, tenant.ErrBusy):
		status, kind = http.StatusTooManyRequests, "busy"
	case errors.Is(err, templates.ErrUnknownTemplateKind):
		status, kind = http.StatusBadRequest, "unknown_template_kind"
	case errors.Is(err, providers.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, providers.ErrTimeout), errors.Is(err, providers.ErrService):
		status, kind = http.StatusBadGateway, "generation_failed"
	case errors.Is(err, tenant.ErrIOFailure):
		status, kind = http.StatusInternalServerError, "io_failure"
	}

	c.JSON(status, gin.H{"error": kind, "detail": err.Error()})
}

func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}

	cfg, err := s.Registry.CreateTenant(req.UserID, req.InitialData)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (s *Server) listUsers(c *gin.Context) {
	ids, err := s.Registry.ListTenants()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": ids, "count": len(ids)})
}

func (s *Server) getUser(c *gin.Context) {
	t, err := s.Registry.GetTenant(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.Registry.DeleteTenant(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) updateWatchlist(c *gin.Context) {
	var patch userconfig.WatchlistPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}

	cfg, err := s.Registry.UpdateWatchlist(c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) updatePreferences(c *gin.Context) {
	var patch userconfig.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}

	cfg, err := s.Registry.UpdatePreferences(c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) generateReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}
	if req.ReportType == "" {
		req.ReportType = "daily"
	}

	result, err := s.Reports.Generate(c.Request.Context(), c.Param("id"), req.ReportType, req.Extra)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) listReports(c *gin.Context) {
	entries, err := s.Reports.ListArchive(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": entries, "count": len(entries)})
}

func (s *Server) getReport(c *gin.Context) {
	content, err := s.Reports.LoadArchived(c.Param("id"), c.Param("reportID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report_id": c.Param("reportID"),
		"content":   content,
	})
}

func (s *Server) getSchedule(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Registry.GetTenant(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": id,
		"jobs":    s.Scheduler.ListForTenant(id),
	})
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "detail": err.Error()})
		return
	}

	response, err := s.Runtime.ProcessForTenant(c.Request.Context(), c.Param("id"), req.Message, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.Param("id"),
		"session_id": req.SessionID,
		"response":   response,
	})
}
