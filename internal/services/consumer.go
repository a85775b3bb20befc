package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/broker"
)

const requestTimeout = 5 * time.Minute

// ConsumerService handles sync and push requests arriving over the
// broker from trusted internal services (the main RiskSure app, mostly).
type ConsumerService struct {
	auth       *AuthService
	engine     *SyncEngine
	compliance *ComplianceService
	log        *zap.Logger
}

func NewConsumerService(auth *AuthService, engine *SyncEngine, compliance *ComplianceService, log *zap.Logger) *ConsumerService {
	return &ConsumerService{
		auth:       auth,
		engine:     engine,
		compliance: compliance,
		log:        log,
	}
}

// RegisterHandlers registers the action handlers with the consumer.
func (s *ConsumerService) RegisterHandlers(consumer *broker.Consumer) {
	consumer.RegisterHandler("sync_vendors", s.handleSyncVendors)
	consumer.RegisterHandler("sync_projects", s.handleSyncProjects)
	consumer.RegisterHandler("push_compliance", s.handlePushCompliance)
}

// handleSyncVendors runs a vendor sync.
// Request params:
//   - vendor_ids: external vendor ids to sync
//   - project_id: (optional) scope the listing to one external project
//   - update_existing / skip_duplicates / merge_existing: run options
func (s *ConsumerService) handleSyncVendors(req *broker.RequestMessage) *broker.ResponseMessage {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if resp := s.authorize(ctx, req, "sync_vendors"); resp != nil {
		return resp
	}

	ids, ok := int64Slice(req.Params["vendor_ids"])
	if !ok || len(ids) == 0 {
		return errorResponse(req.RequestID, "bad_request", "vendor_ids is required in params")
	}

	opts := SyncOptions{
		UpdateExisting: boolParam(req.Params, "update_existing"),
		SkipDuplicates: boolParam(req.Params, "skip_duplicates"),
		MergeExisting:  boolParam(req.Params, "merge_existing"),
	}
	if projectID, ok := int64Param(req.Params, "project_id"); ok {
		opts.ProjectID = projectID
	}

	result, err := s.engine.SyncVendors(ctx, req.CompanyID, ids, opts)
	if err != nil {
		s.log.Warn("vendor sync request failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		return errorResponse(req.RequestID, codeForError(err), err.Error())
	}

	return successResponse(req.RequestID, result)
}

// handleSyncProjects runs a project sync.
// Request params:
//   - project_ids: external project ids to sync
//   - update_existing: refresh already-synced projects
func (s *ConsumerService) handleSyncProjects(req *broker.RequestMessage) *broker.ResponseMessage {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if resp := s.authorize(ctx, req, "sync_projects"); resp != nil {
		return resp
	}

	ids, ok := int64Slice(req.Params["project_ids"])
	if !ok || len(ids) == 0 {
		return errorResponse(req.RequestID, "bad_request", "project_ids is required in params")
	}

	opts := SyncOptions{UpdateExisting: boolParam(req.Params, "update_existing")}

	result, err := s.engine.SyncProjects(ctx, req.CompanyID, ids, opts)
	if err != nil {
		s.log.Warn("project sync request failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		return errorResponse(req.RequestID, codeForError(err), err.Error())
	}

	return successResponse(req.RequestID, result)
}

// handlePushCompliance pushes a verification outcome out.
// Request params:
//   - subcontractor_id: local subcontractor id
//   - verification_id: (optional) defaults to the latest verification
func (s *ConsumerService) handlePushCompliance(req *broker.RequestMessage) *broker.ResponseMessage {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if resp := s.authorize(ctx, req, "push_compliance"); resp != nil {
		return resp
	}

	subcontractorID, _ := req.Params["subcontractor_id"].(string)
	if subcontractorID == "" {
		return errorResponse(req.RequestID, "bad_request", "subcontractor_id is required in params")
	}
	verificationID, _ := req.Params["verification_id"].(string)

	result, err := s.compliance.PushCompliance(ctx, req.CompanyID, subcontractorID, verificationID)
	if err != nil {
		s.log.Warn("compliance push request failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		return errorResponse(req.RequestID, codeForError(err), err.Error())
	}

	return successResponse(req.RequestID, result)
}

func (s *ConsumerService) authorize(ctx context.Context, req *broker.RequestMessage, action string) *broker.ResponseMessage {
	service, err := s.auth.ValidateAPIKey(ctx, req.APIKey)
	if err != nil {
		return errorResponse(req.RequestID, "unauthorized", err.Error())
	}
	if err := s.auth.ValidateAction(service, action); err != nil {
		return errorResponse(req.RequestID, "forbidden", err.Error())
	}
	return nil
}

func codeForError(err error) string {
	var notFound *NotFoundError
	var validation *ValidationError

	switch {
	case errors.As(err, &validation):
		return "bad_request"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrPendingCompanySelection):
		return "pending_company_selection"
	case errors.Is(err, ErrReauthorizationRequired):
		return "reauthorization_required"
	default:
		return "sync_error"
	}
}

// int64Slice converts a JSON-decoded array into external ids. JSON
// numbers arrive as float64.
func int64Slice(raw interface{}) ([]int64, bool) {
	values, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		ids = append(ids, int64(f))
	}
	return ids, true
}

func int64Param(params map[string]interface{}, key string) (int64, bool) {
	if f, ok := params[key].(float64); ok {
		return int64(f), true
	}
	return 0, false
}

func boolParam(params map[string]interface{}, key string) bool {
	b, _ := params[key].(bool)
	return b
}

func successResponse(requestID string, data interface{}) *broker.ResponseMessage {
	return &broker.ResponseMessage{
		RequestID: requestID,
		Success:   true,
		Data:      data,
	}
}

func errorResponse(requestID, code, message string) *broker.ResponseMessage {
	return &broker.ResponseMessage{
		RequestID: requestID,
		Success:   false,
		Error: &broker.ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}
