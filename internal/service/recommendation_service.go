package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/cache"
	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/confirmation"
	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/metrics"
)

// ErrConfirmationsDisabled is returned by ConfirmRecency when no confirmation store is configured.
var ErrConfirmationsDisabled = errors.New("recency confirmations are not enabled")

// ConfirmationStore is the part of confirmation.Store the service needs.
type ConfirmationStore interface {
	Save(ctx context.Context, c *confirmation.Confirmation) error
	ListForPatient(ctx context.Context, patientID string) ([]*confirmation.Confirmation, error)
}

// ComputeRequest carries one checklist computation.
type ComputeRequest struct {
	PatientID string
	Answers   *domain.RawAnswers
	AsOf      time.Time // zero means today
}

// ComputeResult is a computed checklist with host bookkeeping.
type ComputeResult struct {
	Checklist  *domain.Checklist
	SnapshotID string
	CacheHit   bool
	ProfileKey string
}

// ServiceOptions wires the optional host components. Nil members are skipped.
type ServiceOptions struct {
	Cache         domain.ChecklistCache
	CacheTTL      time.Duration
	Confirmations ConfirmationStore
	Snapshots     domain.SnapshotRepository
	Metrics       *metrics.Metrics
	Clock         func() time.Time
}

// RecommendationService orchestrates normalization, confirmations, caching, the engine and
// snapshot persistence around one catalog.
type RecommendationService struct {
	logger  *logrus.Logger
	engine  *Engine
	catalog *catalog.Catalog
	opts    ServiceOptions
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(logger *logrus.Logger, c *catalog.Catalog, opts ServiceOptions) (*RecommendationService, error) {
	if !c.IsValidated() {
		return nil, domain.NewCatalogError("", "", "catalog has not been validated")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &RecommendationService{
		logger:  logger,
		engine:  NewEngine(logger),
		catalog: c,
		opts:    opts,
	}, nil
}

// Catalog returns the catalog the service evaluates against.
func (s *RecommendationService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Compute returns the checklist for one set of onboarding answers.
func (s *RecommendationService) Compute(ctx context.Context, req ComputeRequest) (*ComputeResult, error) {
	start := time.Now()

	profile, err := s.profile(ctx, req)
	if err != nil {
		return nil, err
	}

	key, err := cache.Key(profile, s.catalog.Version)
	if err != nil {
		return nil, fmt.Errorf("deriving cache key: %w", err)
	}

	if s.opts.Cache != nil {
		if checklist, ok := s.opts.Cache.Get(ctx, key); ok {
			s.opts.Metrics.ObserveChecklist(checklist, time.Since(start), true)
			s.logger.WithFields(logrus.Fields{
				"patient_id": req.PatientID,
				"cache_key":  key[:12],
			}).Debug("Checklist served from cache")
			return &ComputeResult{Checklist: checklist, CacheHit: true, ProfileKey: key}, nil
		}
	}

	checklist, err := s.engine.Evaluate(profile, s.catalog)
	if err != nil {
		return nil, err
	}

	if s.opts.Cache != nil {
		s.opts.Cache.Set(ctx, key, checklist, s.opts.CacheTTL)
	}

	result := &ComputeResult{Checklist: checklist, ProfileKey: key}
	if s.opts.Snapshots != nil {
		snapshot := &domain.ChecklistSnapshot{
			ID:             uuid.New().String(),
			PatientID:      req.PatientID,
			ProfileHash:    key,
			CatalogVersion: s.catalog.Version,
			AsOf:           profile.AsOf(),
			Checklist:      checklist,
		}
		if err := s.opts.Snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			s.opts.Metrics.ObserveSnapshotFailure()
			s.logger.WithError(err).WithField("patient_id", req.PatientID).Warn("Failed to persist checklist snapshot")
		} else {
			result.SnapshotID = snapshot.ID
		}
	}

	s.opts.Metrics.ObserveChecklist(checklist, time.Since(start), false)
	s.logger.WithFields(logrus.Fields{
		"patient_id":      req.PatientID,
		"catalog_version": s.catalog.Version,
		"recommendations": len(checklist.Recommendations),
		"due_now":         checklist.DueNowCount,
		"snapshot_id":     result.SnapshotID,
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Info("Preventive care checklist computed")

	return result, nil
}

// Explain returns every rule's decision for one set of answers, bypassing the cache.
func (s *RecommendationService) Explain(ctx context.Context, req ComputeRequest) ([]domain.Decision, error) {
	profile, err := s.profile(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.engine.Explain(profile, s.catalog)
}

// ConfirmRecency validates and stores a patient's confirmed screening date.
func (s *RecommendationService) ConfirmRecency(ctx context.Context, c *confirmation.Confirmation) error {
	if s.opts.Confirmations == nil {
		return ErrConfirmationsDisabled
	}
	if c == nil {
		return domain.NewValidationError("confirmation", "confirmation is required", nil)
	}
	if err := c.Validate(s.opts.Clock()); err != nil {
		return err
	}
	if err := s.opts.Confirmations.Save(ctx, c); err != nil {
		return fmt.Errorf("saving confirmation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":    c.PatientID,
		"screening_key": c.ScreeningKey,
		"source":        c.Source,
	}).Info("Screening recency confirmed")
	return nil
}

// Confirmations lists a patient's stored confirmations.
func (s *RecommendationService) Confirmations(ctx context.Context, patientID string) ([]*confirmation.Confirmation, error) {
	if s.opts.Confirmations == nil {
		return nil, ErrConfirmationsDisabled
	}
	return s.opts.Confirmations.ListForPatient(ctx, patientID)
}

// profile applies stored confirmations and normalizes the answers. A failing confirmation
// store degrades to the submitted answers.
func (s *RecommendationService) profile(ctx context.Context, req ComputeRequest) (*domain.Profile, error) {
	if req.Answers == nil {
		return nil, domain.NewValidationError("answers", "onboarding answers are required", nil)
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.opts.Clock()
	}

	raw := *req.Answers
	if s.opts.Confirmations != nil && req.PatientID != "" {
		stored, err := s.opts.Confirmations.ListForPatient(ctx, req.PatientID)
		if err != nil {
			s.logger.WithError(err).WithField("patient_id", req.PatientID).Warn("Failed to load recency confirmations")
		} else {
			raw = confirmation.ApplyToAnswers(raw, stored, asOf)
		}
	}

	return domain.NormalizeAt(&raw, asOf)
}
