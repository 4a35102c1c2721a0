package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stroke-code-server/internal/domain"
	"github.com/stroke-code-server/internal/export"
)

func (s *Server) handleActivate(c *gin.Context) {
	snap, err := s.session.Activate(c.Request.Context())
	if errors.Is(err, domain.ErrInvalidState) {
		respondError(c, http.StatusConflict, domain.ErrInvalidStateCode, "Stroke code already active or finalized", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Failed to activate stroke code", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleReset(c *gin.Context) {
	s.session.Reset()
	c.JSON(http.StatusOK, s.session.Timer().Snapshot())
}

func (s *Server) handleClock(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Timer().Snapshot())
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetNihss(c *gin.Context) {
	var nihss domain.NihssAssessment
	if err := c.ShouldBindJSON(&nihss); err != nil {
		respondInputError(c, err)
		return
	}
	s.session.SetNihss(nihss)
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetAspects(c *gin.Context) {
	var aspects domain.AspectsAssessment
	if err := c.ShouldBindJSON(&aspects); err != nil {
		respondInputError(c, err)
		return
	}
	s.session.SetAspects(aspects)
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetChecklist(c *gin.Context) {
	var checklist domain.Checklist
	if err := c.ShouldBindJSON(&checklist); err != nil {
		respondInputError(c, err)
		return
	}
	s.session.SetChecklist(checklist)
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetCriteria(c *gin.Context) {
	var criteria domain.ThrombectomyCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		respondInputError(c, err)
		return
	}
	if err := s.session.SetCriteria(criteria); err != nil {
		respondInputError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetPatient(c *gin.Context) {
	var patient domain.PatientData
	if err := c.ShouldBindJSON(&patient); err != nil {
		respondInputError(c, err)
		return
	}
	if err := s.session.SetPatient(patient); err != nil {
		respondInputError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleEligibility(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Eligibility())
}

func (s *Server) handleDose(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.DoseView())
}

func (s *Server) handleFinalize(c *gin.Context) {
	created, err := s.session.Finalize(c.Request.Context())
	if err != nil {
		var incomplete *domain.IncompleteCaseError
		var validation *domain.ValidationError
		switch {
		case errors.As(err, &incomplete):
			respondError(c, http.StatusUnprocessableEntity, domain.ErrIncompleteCase, "Case is incomplete", err)
		case errors.As(err, &validation):
			respondError(c, http.StatusBadRequest, domain.ErrValidation, "Validation failed", err)
		case errors.Is(err, domain.ErrCaseAlreadyFinalized):
			respondError(c, http.StatusConflict, domain.ErrInvalidStateCode, "Case already finalized; reset to start a new code", err)
		default:
			respondError(c, http.StatusInternalServerError, domain.ErrStorage, "Failed to record case", err)
		}
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListCases(c *gin.Context) {
	cases := s.session.Recorder().History()
	c.JSON(http.StatusOK, gin.H{
		"count": len(cases),
		"cases": cases,
	})
}

func (s *Server) handleGetCase(c *gin.Context) {
	found, err := s.session.Recorder().Get(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Case not found", err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (s *Server) handleExportCase(c *gin.Context) {
	id := c.Param("id")
	body, ok := s.cachedExport(id)
	if !ok {
		found, err := s.session.Recorder().Get(id)
		if err != nil {
			respondError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Case not found", err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, found); err != nil {
			respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Failed to export case", err)
			return
		}
		body = buf.Bytes()
		if s.exports != nil {
			s.exports.Add(id, body)
		}
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(id)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

func (s *Server) cachedExport(id string) ([]byte, bool) {
	if s.exports == nil {
		return nil, false
	}
	return s.exports.Get(id)
}

func (s *Server) handleTestNotification(c *gin.Context) {
	err := s.session.SendTest(c.Request.Context())
	var validation *domain.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "sent"})
	case errors.As(err, &validation):
		respondError(c, http.StatusBadRequest, domain.ErrValidation, "Notification recipients incomplete", err)
	default:
		respondError(c, http.StatusBadGateway, domain.ErrNotification, "Failed to send test notification", err)
	}
}

func (s *Server) handleGetRecipients(c *gin.Context) {
	recipients, err := s.session.Recipients()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrNotification, "Notifications are not configured", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipients":    recipients,
		"missing_roles": recipients.EmptyRoles(),
	})
}

func (s *Server) handleSetRecipients(c *gin.Context) {
	var recipients domain.Recipients
	if err := c.ShouldBindJSON(&recipients); err != nil {
		respondInputError(c, err)
		return
	}
	if err := s.session.SetRecipients(recipients); err != nil {
		respondError(c, http.StatusServiceUnavailable, domain.ErrNotification, "Notifications are not configured", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipients":    recipients,
		"missing_roles": recipients.EmptyRoles(),
	})
}
