package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/preventive-care-server/internal/catalog"
	"github.com/preventive-care-server/internal/confirmation"
	"github.com/preventive-care-server/internal/domain"
	"github.com/preventive-care-server/internal/onboarding"
	"github.com/preventive-care-server/internal/service"
)

// Tool names
const (
	ToolComputeChecklist      = "compute_checklist"
	ToolExplainChecklist      = "explain_checklist"
	ToolValidateForScheduling = "validate_for_scheduling"
	ToolListScreeningRules    = "list_screening_rules"
	ToolOnboardingSteps       = "onboarding_steps"
	ToolConfirmRecency        = "confirm_screening_recency"
)

// ToolNames lists every registered tool in registration order.
var ToolNames = []string{
	ToolComputeChecklist,
	ToolExplainChecklist,
	ToolValidateForScheduling,
	ToolListScreeningRules,
	ToolOnboardingSteps,
	ToolConfirmRecency,
}

// ChecklistParams defines parameters for compute_checklist and explain_checklist.
// Profile is kept loose so clients may omit unanswered questions.
type ChecklistParams struct {
	Profile   map[string]any `json:"profile" jsonschema:"onboarding answers keyed by field name, e.g. dateOfBirth, sexAtBirth, smokingStatus, screeningHistory"`
	PatientID string         `json:"patient_id,omitempty" jsonschema:"patient id used to apply stored recency confirmations"`
	AsOf      string         `json:"as_of,omitempty" jsonschema:"evaluation date as YYYY-MM-DD, defaults to today"`
}

// ChecklistResult defines the result structure for compute_checklist
type ChecklistResult struct {
	*domain.Checklist
	SnapshotID string `json:"snapshot_id,omitempty"`
	Cached     bool   `json:"cached"`
}

// ExplainResult defines the result structure for explain_checklist
type ExplainResult struct {
	CatalogVersion string            `json:"catalog_version"`
	Decisions      []domain.Decision `json:"decisions"`
}

// SchedulingParams defines parameters for validate_for_scheduling
type SchedulingParams struct {
	Profile     map[string]any `json:"profile" jsonschema:"onboarding answers keyed by field name"`
	PatientID   string         `json:"patient_id,omitempty" jsonschema:"patient id used to apply stored recency confirmations"`
	AsOf        string         `json:"as_of,omitempty" jsonschema:"evaluation date as YYYY-MM-DD, defaults to today"`
	ScreeningID string         `json:"screening_id" jsonschema:"screening id from the checklist, e.g. colorectal-cancer-screening"`
}

// ListRulesParams defines parameters for list_screening_rules
type ListRulesParams struct {
	Category string `json:"category,omitempty" jsonschema:"only return rules in this category"`
}

// RuleSummary is one catalog rule as shown to MCP clients
type RuleSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Eligibility string `json:"eligibility"`
	Interval    string `json:"interval"`
	Source      string `json:"source"`
}

// OnboardingParams defines parameters for onboarding_steps
type OnboardingParams struct {
	Answers map[string]any `json:"answers,omitempty" jsonschema:"answers given so far"`
	AsOf    string         `json:"as_of,omitempty" jsonschema:"evaluation date as YYYY-MM-DD, defaults to today"`
}

// ConfirmRecencyParams defines parameters for confirm_screening_recency
type ConfirmRecencyParams struct {
	PatientID      string `json:"patient_id" jsonschema:"patient id"`
	ScreeningKey   string `json:"screening_key" jsonschema:"screening history key, e.g. colonoscopy or mammogram"`
	LastScreenedOn string `json:"last_screened_on,omitempty" jsonschema:"date of the last screening as YYYY-MM-DD, empty when never screened"`
	Notes          string `json:"notes,omitempty" jsonschema:"free text notes"`
}

func (s *Server) handleComputeChecklist(ctx context.Context, req *mcp.CallToolRequest, params ChecklistParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolComputeChecklist).Info("Tool invoked")

	computeReq, err := s.computeRequest(params)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}

	result, err := s.service.Compute(ctx, computeReq)
	if err != nil {
		return s.failure(ToolComputeChecklist, err), nil, nil
	}

	checklist := result.Checklist
	summary := fmt.Sprintf("%d screenings apply: %d due now, %d due soon, %d up to date, %d unknown",
		len(checklist.Recommendations), checklist.DueNowCount, checklist.DueSoonCount,
		checklist.UpToDateCount, checklist.UnknownCount)

	return s.jsonResult(summary, ChecklistResult{
		Checklist:  checklist,
		SnapshotID: result.SnapshotID,
		Cached:     result.CacheHit,
	}), nil, nil
}

func (s *Server) handleExplainChecklist(ctx context.Context, req *mcp.CallToolRequest, params ChecklistParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolExplainChecklist).Info("Tool invoked")

	computeReq, err := s.computeRequest(params)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}

	decisions, err := s.service.Explain(ctx, computeReq)
	if err != nil {
		return s.failure(ToolExplainChecklist, err), nil, nil
	}

	applicable := 0
	for _, d := range decisions {
		if d.Applicable {
			applicable++
		}
	}
	summary := fmt.Sprintf("%d of %d rules apply", applicable, len(decisions))

	return s.jsonResult(summary, ExplainResult{
		CatalogVersion: s.service.Catalog().Version,
		Decisions:      decisions,
	}), nil, nil
}

func (s *Server) handleValidateForScheduling(ctx context.Context, req *mcp.CallToolRequest, params SchedulingParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":         ToolValidateForScheduling,
		"screening_id": params.ScreeningID,
	}).Info("Tool invoked")

	if params.ScreeningID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("screening_id is required")), nil, nil
	}
	computeReq, err := s.computeRequest(ChecklistParams{
		Profile:   params.Profile,
		PatientID: params.PatientID,
		AsOf:      params.AsOf,
	})
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}

	result, err := s.service.Compute(ctx, computeReq)
	if err != nil {
		return s.failure(ToolValidateForScheduling, err), nil, nil
	}

	target, err := s.bridge.ValidateForScheduling(result.Checklist, params.ScreeningID)
	if err != nil {
		return s.failure(ToolValidateForScheduling, err), nil, nil
	}

	return s.jsonResult(fmt.Sprintf("%s can be scheduled (%s)", target.Title, target.Status), target), nil, nil
}

func (s *Server) handleListScreeningRules(ctx context.Context, req *mcp.CallToolRequest, params ListRulesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolListScreeningRules).Info("Tool invoked")

	cat := s.service.Catalog()
	rules := domain.FilterOrdered(cat.Rules, func(r catalog.ScreeningRule) bool {
		return params.Category == "" || r.Category == params.Category
	})

	summaries := make([]RuleSummary, 0, len(rules))
	for _, r := range rules {
		summaries = append(summaries, RuleSummary{
			ID:          r.ID,
			Title:       r.Title,
			Category:    r.Category,
			Eligibility: r.Eligibility,
			Interval:    describePolicy(r.Policy),
			Source:      r.Source,
		})
	}

	summary := fmt.Sprintf("%d rules in catalog %s", len(summaries), cat.Version)
	return s.jsonResult(summary, map[string]any{
		"catalog_version": cat.Version,
		"rules":           summaries,
	}), nil, nil
}

func (s *Server) handleOnboardingSteps(ctx context.Context, req *mcp.CallToolRequest, params OnboardingParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolOnboardingSteps).Info("Tool invoked")

	raw, err := decodeAnswers(params.Answers)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}
	asOf, err := parseDate(params.AsOf)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}
	if asOf.IsZero() {
		asOf = s.clock()
	}

	steps := onboarding.VisibleSteps(raw, asOf)
	return s.jsonResult(fmt.Sprintf("%d onboarding steps", len(steps)), map[string]any{"steps": steps}), nil, nil
}

func (s *Server) handleConfirmRecency(ctx context.Context, req *mcp.CallToolRequest, params ConfirmRecencyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":          ToolConfirmRecency,
		"screening_key": params.ScreeningKey,
	}).Info("Tool invoked")

	conf := &confirmation.Confirmation{
		PatientID:    params.PatientID,
		ScreeningKey: domain.ScreeningKey(params.ScreeningKey),
		Source:       confirmation.SourcePatient,
		Notes:        params.Notes,
	}
	if params.LastScreenedOn != "" {
		date, err := parseDate(params.LastScreenedOn)
		if err != nil {
			return s.createErrorResult("Invalid parameters", err), nil, nil
		}
		conf.LastScreenedOn = &date
	}

	if err := s.service.ConfirmRecency(ctx, conf); err != nil {
		return s.failure(ToolConfirmRecency, err), nil, nil
	}

	return s.jsonResult(fmt.Sprintf("Recorded %s for patient %s", conf.ScreeningKey, conf.PatientID), conf), nil, nil
}

func (s *Server) computeRequest(params ChecklistParams) (service.ComputeRequest, error) {
	if params.Profile == nil {
		return service.ComputeRequest{}, fmt.Errorf("profile is required")
	}
	raw, err := decodeAnswers(params.Profile)
	if err != nil {
		return service.ComputeRequest{}, err
	}
	asOf, err := parseDate(params.AsOf)
	if err != nil {
		return service.ComputeRequest{}, err
	}
	return service.ComputeRequest{PatientID: params.PatientID, Answers: raw, AsOf: asOf}, nil
}

// decodeAnswers converts a loose answer map into RawAnswers via its JSON form.
func decodeAnswers(answers map[string]any) (*domain.RawAnswers, error) {
	raw := &domain.RawAnswers{}
	if answers == nil {
		return raw, nil
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encoding answers: %w", err)
	}
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("answers do not match the onboarding schema: %w", err)
	}
	return raw, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return domain.ParseDate(value)
}

func describePolicy(p catalog.IntervalPolicy) string {
	switch p.Kind {
	case domain.ONE_TIME:
		return "once"
	case domain.AGE_WINDOW:
		out := ""
		for i, w := range p.Windows {
			if i > 0 {
				out += "; "
			}
			out += fmt.Sprintf("every %d years at ages %d-%d", w.Years, w.MinAge, w.MaxAge)
		}
		return out
	default:
		if p.Years == 1 {
			return "every year"
		}
		return fmt.Sprintf("every %d years", p.Years)
	}
}

// failure turns a service error into a tool error result.
func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		return s.createErrorResult("Invalid answers", err)
	case errors.As(err, &notFoundErr):
		return s.createErrorResult("Not on the current checklist", err)
	case errors.Is(err, service.ErrConfirmationsDisabled):
		return s.createErrorResult("Unavailable", err)
	default:
		s.logger.WithError(err).WithField("tool", tool).Error("Tool execution failed")
		return s.createErrorResult("Tool execution failed", err)
	}
}

// jsonResult returns a one-line summary followed by the JSON payload
func (s *Server) jsonResult(summary string, payload any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(data)},
		},
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
