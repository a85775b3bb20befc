package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

type compliancePusher interface {
	PushComplianceStatus(ctx context.Context, accessToken string, externalVendorID int64, status string, details map[string]interface{}) (*procore.PushOutcome, error)
}

type localMappingFinder interface {
	GetByLocalEntity(ctx context.Context, localType models.LocalEntityType, localID string) (*models.EntityMapping, error)
}

type subcontractorReader interface {
	FindByID(ctx context.Context, companyID, id string) (*models.Subcontractor, error)
}

type verificationReader interface {
	FindByID(ctx context.Context, companyID, id string) (*models.Verification, error)
	LatestBySubcontractor(ctx context.Context, companyID, subcontractorID string) (*models.Verification, error)
}

type pushStore interface {
	Insert(ctx context.Context, rec *models.CompliancePushRecord) error
	ListBySubcontractor(ctx context.Context, companyID, subcontractorID string) ([]*models.CompliancePushRecord, error)
}

// PushResult is what the caller sees for one push attempt. A missing
// mapping is an expected steady state, so it comes back as Pushed=false
// rather than an error.
type PushResult struct {
	Pushed           bool   `json:"pushed"`
	Message          string `json:"message"`
	ExternalVendorID int64  `json:"external_vendor_id,omitempty"`
}

// ComplianceService is the outbound half of the reconciliation engine: it
// maps a subcontractor back to its external vendor and pushes the latest
// verification outcome as a status update, keeping an audit trail of
// every attempt.
type ComplianceService struct {
	coordinator   *TokenCoordinator
	client        compliancePusher
	mappings      localMappingFinder
	subs          subcontractorReader
	verifications verificationReader
	pushes        pushStore
	audit         auditSink
	events        eventPublisher
	log           *zap.Logger
}

func NewComplianceService(
	coordinator *TokenCoordinator,
	client compliancePusher,
	mappings localMappingFinder,
	subs subcontractorReader,
	verifications verificationReader,
	pushes pushStore,
	audit auditSink,
	events eventPublisher,
	log *zap.Logger,
) *ComplianceService {
	return &ComplianceService{
		coordinator:   coordinator,
		client:        client,
		mappings:      mappings,
		subs:          subs,
		verifications: verifications,
		pushes:        pushes,
		audit:         audit,
		events:        events,
		log:           log,
	}
}

// PushCompliance pushes the given verification (or the latest one when
// verificationID is empty) for the subcontractor to the external
// platform. Push failures are reported in the result, never returned as
// errors; absent local records are.
func (s *ComplianceService) PushCompliance(ctx context.Context, companyID, subcontractorID, verificationID string) (*PushResult, error) {
	if companyID == "" {
		return nil, &ValidationError{Message: "company id is required"}
	}
	if subcontractorID == "" {
		return nil, &ValidationError{Message: "subcontractor id is required"}
	}

	sub, err := s.subs.FindByID(ctx, companyID, subcontractorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subcontractor: %w", err)
	}
	if sub == nil {
		return nil, &NotFoundError{Message: "subcontractor not found"}
	}

	var verification *models.Verification
	if verificationID == "" {
		verification, err = s.verifications.LatestBySubcontractor(ctx, companyID, subcontractorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load verification: %w", err)
		}
		if verification == nil {
			return nil, &NotFoundError{Message: "No verifications found for subcontractor"}
		}
	} else {
		verification, err = s.verifications.FindByID(ctx, companyID, verificationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load verification: %w", err)
		}
		if verification == nil {
			return nil, &NotFoundError{Message: "verification not found"}
		}
	}

	mapping, err := s.mappings.GetByLocalEntity(ctx, models.LocalTypeSubcontractor, subcontractorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}
	if mapping == nil {
		result := &PushResult{
			Pushed:  false,
			Message: "subcontractor has never been synced to the external platform",
		}
		s.record(ctx, companyID, subcontractorID, verification.ID, result)
		return result, nil
	}

	conn, err := s.coordinator.Connection(ctx, companyID)
	if err != nil {
		return nil, err
	}

	status := statusForVerification(verification)
	details := map[string]interface{}{
		"verification_id": verification.ID,
		"verified_at":     verification.CreatedAt,
		"source":          "risksure",
	}

	var outcome *procore.PushOutcome
	err = s.coordinator.Do(ctx, conn, func(accessToken string) error {
		var callErr error
		outcome, callErr = s.client.PushComplianceStatus(ctx, accessToken, mapping.ExternalID, status, details)
		return callErr
	})
	if err != nil {
		result := &PushResult{
			Pushed:           false,
			Message:          fmt.Sprintf("push failed: %v", err),
			ExternalVendorID: mapping.ExternalID,
		}
		s.record(ctx, companyID, subcontractorID, verification.ID, result)
		return result, nil
	}

	message := "compliance status pushed"
	if outcome != nil && outcome.Message != "" {
		message = outcome.Message
	}

	result := &PushResult{
		Pushed:           true,
		Message:          message,
		ExternalVendorID: mapping.ExternalID,
	}
	s.record(ctx, companyID, subcontractorID, verification.ID, result)

	if s.events != nil {
		err := s.events.PublishEvent("compliance.pushed", companyID, map[string]interface{}{
			"subcontractor_id":   subcontractorID,
			"verification_id":    verification.ID,
			"external_vendor_id": mapping.ExternalID,
			"status":             status,
		})
		if err != nil {
			s.log.Warn("failed to publish compliance event", zap.Error(err))
		}
	}

	return result, nil
}

// GetPushHistory returns the push attempts for a subcontractor, newest
// first.
func (s *ComplianceService) GetPushHistory(ctx context.Context, companyID, subcontractorID string) ([]*models.CompliancePushRecord, error) {
	if companyID == "" {
		return nil, &ValidationError{Message: "company id is required"}
	}
	if subcontractorID == "" {
		return nil, &ValidationError{Message: "subcontractor id is required"}
	}

	return s.pushes.ListBySubcontractor(ctx, companyID, subcontractorID)
}

// record appends the push attempt to the history and the audit log. The
// attempt already happened; failures to record it are logged only.
func (s *ComplianceService) record(ctx context.Context, companyID, subcontractorID, verificationID string, result *PushResult) {
	rec := &models.CompliancePushRecord{
		CompanyID:        companyID,
		SubcontractorID:  subcontractorID,
		VerificationID:   verificationID,
		Pushed:           result.Pushed,
		Message:          result.Message,
		ExternalVendorID: result.ExternalVendorID,
	}
	if err := s.pushes.Insert(ctx, rec); err != nil {
		s.log.Warn("failed to record compliance push", zap.Error(err))
	}

	if s.audit != nil {
		err := s.audit.Insert(ctx, &models.AuditLog{
			CompanyID:  companyID,
			EntityType: "subcontractor",
			EntityID:   subcontractorID,
			Action:     "compliance_push",
			Details: map[string]interface{}{
				"pushed":          result.Pushed,
				"message":         result.Message,
				"verification_id": verificationID,
			},
		})
		if err != nil {
			s.log.Warn("failed to write audit entry", zap.Error(err))
		}
	}
}

func statusForVerification(v *models.Verification) string {
	switch v.Status {
	case models.VerificationStatusPass:
		return "compliant"
	case models.VerificationStatusFail:
		return "non_compliant"
	default:
		return "pending"
	}
}
