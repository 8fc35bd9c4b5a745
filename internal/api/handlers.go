package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/confirmation"
	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/onboarding"
	"github.com/preventive-care-server/internal/service"
)

// RecommendationRequest is the body of the checklist endpoints.
type RecommendationRequest struct {
	Profile   *domain.RawAnswers `json:"profile"`
	PatientID string             `json:"patientId,omitempty"`
	AsOf      string             `json:"asOf,omitempty"`
}

// RecommendationResponse is a checklist plus host bookkeeping.
type RecommendationResponse struct {
	*domain.Checklist
	SnapshotID string `json:"snapshotId,omitempty"`
	Cached     bool   `json:"cached"`
}

// ExplainResponse lists every rule's decision.
type ExplainResponse struct {
	Decisions      []domain.Decision `json:"decisions"`
	CatalogVersion string            `json:"catalogVersion"`
}

// SchedulingRequest asks whether a screening on a checklist can be booked.
type SchedulingRequest struct {
	Checklist   *domain.Checklist `json:"checklist" binding:"required"`
	ScreeningID string            `json:"screeningId" binding:"required"`
}

// CatalogResponse describes the guideline table in use.
type CatalogResponse struct {
	Version            string                  `json:"version"`
	Categories         []catalog.Category      `json:"categories"`
	Rules              []catalog.ScreeningRule `json:"rules"`
	PregnancySensitive []string                `json:"pregnancySensitive"`
}

// OnboardingRequest carries the answers given so far.
type OnboardingRequest struct {
	Answers *domain.RawAnswers `json:"answers"`
	AsOf    string             `json:"asOf,omitempty"`
}

// ConfirmationRequest is a patient's confirmed screening date. A null lastScreenedOn means never.
type ConfirmationRequest struct {
	ScreeningKey   string  `json:"screeningKey" binding:"required"`
	LastScreenedOn *string `json:"lastScreenedOn"`
	Source         string  `json:"source,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

func (s *Server) handleRecommendations(c *gin.Context) {
	req, asOf, ok := s.bindRecommendation(c)
	if !ok {
		return
	}

	result, err := s.deps.Service.Compute(c.Request.Context(), service.ComputeRequest{
		PatientID: req.PatientID,
		Answers:   req.Profile,
		AsOf:      asOf,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecommendationResponse{
		Checklist:  result.Checklist,
		SnapshotID: result.SnapshotID,
		Cached:     result.CacheHit,
	})
}

func (s *Server) handleExplain(c *gin.Context) {
	req, asOf, ok := s.bindRecommendation(c)
	if !ok {
		return
	}

	decisions, err := s.deps.Service.Explain(c.Request.Context(), service.ComputeRequest{
		PatientID: req.PatientID,
		Answers:   req.Profile,
		AsOf:      asOf,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExplainResponse{
		Decisions:      decisions,
		CatalogVersion: s.deps.Service.Catalog().Version,
	})
}

func (s *Server) bindRecommendation(c *gin.Context) (*RecommendationRequest, time.Time, bool) {
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return nil, time.Time{}, false
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		s.respondError(c, err)
		return nil, time.Time{}, false
	}
	return &req, asOf, true
}

func (s *Server) handleValidateScheduling(c *gin.Context) {
	var req SchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	target, err := s.deps.Bridge.ValidateForScheduling(req.Checklist, req.ScreeningID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, target)
}

func (s *Server) handleCatalog(c *gin.Context) {
	cat := s.deps.Service.Catalog()
	c.JSON(http.StatusOK, CatalogResponse{
		Version:            cat.Version,
		Categories:         cat.Categories,
		Rules:              cat.Rules,
		PregnancySensitive: cat.PregnancySensitive(),
	})
}

func (s *Server) handleOnboardingSteps(c *gin.Context) {
	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if asOf.IsZero() {
		asOf = s.clock()
	}

	c.JSON(http.StatusOK, gin.H{
		"steps": onboarding.VisibleSteps(req.Answers, asOf),
	})
}

func (s *Server) handleConfirm(c *gin.Context) {
	var req ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	conf := &confirmation.Confirmation{
		PatientID:    c.Param("patientId"),
		ScreeningKey: domain.ScreeningKey(req.ScreeningKey),
		Source:       confirmation.Source(req.Source),
		Notes:        req.Notes,
	}
	if req.LastScreenedOn != nil {
		date, err := domain.ParseDate(*req.LastScreenedOn)
		if err != nil {
			s.respondError(c, domain.NewValidationError("lastScreenedOn", err.Error(), *req.LastScreenedOn))
			return
		}
		conf.LastScreenedOn = &date
	}

	if err := s.deps.Service.ConfirmRecency(c.Request.Context(), conf); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conf)
}

func (s *Server) handleListConfirmations(c *gin.Context) {
	list, err := s.deps.Service.Confirmations(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if list == nil {
		list = []*confirmation.Confirmation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"patientId":     c.Param("patientId"),
		"confirmations": list,
	})
}

func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	asOf, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, domain.NewValidationError("asOf", err.Error(), value)
	}
	return asOf, nil
}
