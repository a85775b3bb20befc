package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/mapper"
	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

const defaultPageSize = 100

type platformLister interface {
	ListVendors(ctx context.Context, accessToken string, page, perPage int, activeOnly bool) (*procore.VendorPage, error)
	ListProjectVendors(ctx context.Context, accessToken string, projectID int64, page, perPage int) (*procore.VendorPage, error)
	ListProjects(ctx context.Context, accessToken string, page, perPage int) (*procore.ProjectPage, error)
}

type mappingStore interface {
	GetByExternalIDs(ctx context.Context, companyID, externalCompanyID string, entityType models.EntityType, externalIDs []int64) (map[int64]*models.EntityMapping, error)
	Upsert(ctx context.Context, m *models.EntityMapping) (*models.EntityMapping, error)
}

type subcontractorStore interface {
	Create(ctx context.Context, s *models.Subcontractor) (*models.Subcontractor, error)
	Update(ctx context.Context, s *models.Subcontractor) error
	FindByID(ctx context.Context, companyID, id string) (*models.Subcontractor, error)
}

type projectStore interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, companyID, id string) (*models.Project, error)
}

type auditSink interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

type eventPublisher interface {
	PublishEvent(eventType, companyID string, data map[string]interface{}) error
}

// SyncOptions control how a run treats entities that already exist
// locally, whether found via a mapping or via a natural-key conflict.
type SyncOptions struct {
	// UpdateExisting refreshes local fields of already-mapped entities;
	// when false they are skipped.
	UpdateExisting bool
	// SkipDuplicates skips vendors whose ABN collides with an unmapped
	// subcontractor, even when MergeExisting is set.
	SkipDuplicates bool
	// MergeExisting attaches colliding vendors to the existing
	// subcontractor instead of skipping. Fields are not overwritten.
	MergeExisting bool
	// ProjectID scopes the vendor listing to one external project.
	ProjectID int64
}

// SyncEngine orchestrates one sync run: fetch the requested external
// entities, classify them against the mapping store and the conflict
// resolver, create or update local records, and report a structured
// result. A single entity's failure never aborts the run.
type SyncEngine struct {
	coordinator *TokenCoordinator
	client      platformLister
	mappings    mappingStore
	subs        subcontractorStore
	projects    projectStore
	resolver    *ConflictResolver
	audit       auditSink
	events      eventPublisher
	log         *zap.Logger
	pageSize    int
}

func NewSyncEngine(
	coordinator *TokenCoordinator,
	client platformLister,
	mappings mappingStore,
	subs subcontractorStore,
	projects projectStore,
	resolver *ConflictResolver,
	audit auditSink,
	events eventPublisher,
	log *zap.Logger,
) *SyncEngine {
	return &SyncEngine{
		coordinator: coordinator,
		client:      client,
		mappings:    mappings,
		subs:        subs,
		projects:    projects,
		resolver:    resolver,
		audit:       audit,
		events:      events,
		log:         log,
		pageSize:    defaultPageSize,
	}
}

// extractedKey remembers the natural key pulled out of a vendor and the
// field it came from.
type extractedKey struct {
	key    string
	source KeySource
	ok     bool
}

// SyncVendors imports the requested external vendors as subcontractors.
func (e *SyncEngine) SyncVendors(ctx context.Context, companyID string, externalIDs []int64, opts SyncOptions) (*models.SyncResult, error) {
	if companyID == "" {
		return nil, &ValidationError{Message: "company id is required"}
	}
	if len(externalIDs) == 0 {
		return nil, &ValidationError{Message: "at least one external vendor id is required"}
	}

	start := time.Now()

	conn, err := e.coordinator.Connection(ctx, companyID)
	if err != nil {
		return nil, err
	}

	vendors, err := e.fetchVendors(ctx, conn, externalIDs, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vendors: %w", err)
	}

	existing, err := e.mappings.GetByExternalIDs(ctx, companyID, conn.ExternalCompanyID, models.EntityTypeVendor, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}

	// Natural keys are only relevant for vendors with no mapping yet.
	keys := make(map[int64]extractedKey, len(vendors))
	var candidates []string
	for id, v := range vendors {
		if existing[id] != nil {
			continue
		}
		key, source, ok := e.resolver.ExtractBusinessNumber(v)
		keys[id] = extractedKey{key: key, source: source, ok: ok}
		if ok {
			candidates = append(candidates, key)
		}
	}

	conflicts, err := e.resolver.FindConflicts(ctx, companyID, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}

	result := &models.SyncResult{Total: len(externalIDs)}
	for _, id := range externalIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := e.syncVendor(ctx, conn, id, vendors[id], existing[id], keys[id], conflicts, opts)
		result.Items = append(result.Items, item)
	}

	result.Tally()
	result.Duration = time.Since(start)

	e.finishRun(ctx, companyID, models.EntityTypeVendor, result)
	return result, nil
}

// SyncProjects imports the requested external projects. Projects carry no
// natural key, so there is no conflict detection on this path.
func (e *SyncEngine) SyncProjects(ctx context.Context, companyID string, externalIDs []int64, opts SyncOptions) (*models.SyncResult, error) {
	if companyID == "" {
		return nil, &ValidationError{Message: "company id is required"}
	}
	if len(externalIDs) == 0 {
		return nil, &ValidationError{Message: "at least one external project id is required"}
	}

	start := time.Now()

	conn, err := e.coordinator.Connection(ctx, companyID)
	if err != nil {
		return nil, err
	}

	externalProjects, err := e.fetchProjects(ctx, conn, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	existing, err := e.mappings.GetByExternalIDs(ctx, companyID, conn.ExternalCompanyID, models.EntityTypeProject, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}

	result := &models.SyncResult{Total: len(externalIDs)}
	for _, id := range externalIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := e.syncProject(ctx, conn, id, externalProjects[id], existing[id], opts)
		result.Items = append(result.Items, item)
	}

	result.Tally()
	result.Duration = time.Since(start)

	e.finishRun(ctx, companyID, models.EntityTypeProject, result)
	return result, nil
}

func (e *SyncEngine) syncVendor(
	ctx context.Context,
	conn *models.OAuthConnection,
	externalID int64,
	vendor *procore.Vendor,
	existing *models.EntityMapping,
	key extractedKey,
	conflicts map[string]*models.Subcontractor,
	opts SyncOptions,
) models.SyncItemResult {
	if vendor == nil {
		return itemError(externalID, "vendor not found in external system")
	}

	// Already mapped: skip or refresh, never re-create.
	if existing != nil {
		if !opts.UpdateExisting {
			return item(externalID, models.OutcomeSkipped, "already synced", nil)
		}

		sub, err := e.subs.FindByID(ctx, conn.CompanyID, existing.LocalID)
		if err != nil {
			return itemError(externalID, fmt.Sprintf("failed to load subcontractor: %v", err))
		}
		if sub == nil {
			return itemError(externalID, "mapped subcontractor no longer exists")
		}

		abn, _, _ := e.resolver.ExtractBusinessNumber(vendor)
		mapper.ApplyVendorUpdate(sub, vendor, abn)
		if err := e.subs.Update(ctx, sub); err != nil {
			return itemError(externalID, fmt.Sprintf("failed to update subcontractor: %v", err))
		}
		if err := e.touchVendorMapping(ctx, conn, externalID, sub.ID); err != nil {
			return itemError(externalID, fmt.Sprintf("failed to update mapping: %v", err))
		}

		return item(externalID, models.OutcomeUpdated, "subcontractor updated", nil)
	}

	// Unmapped with a colliding natural key: merge or skip.
	if key.ok {
		if conflict := conflicts[key.key]; conflict != nil {
			if opts.MergeExisting && !opts.SkipDuplicates {
				if err := e.touchVendorMapping(ctx, conn, externalID, conflict.ID); err != nil {
					return itemError(externalID, fmt.Sprintf("failed to create mapping: %v", err))
				}
				return item(externalID, models.OutcomeUpdated, "merged into existing subcontractor", map[string]interface{}{
					"warnings": []string{
						fmt.Sprintf("vendor matched existing subcontractor %s by ABN %s (%s); mapping attached without overwriting local fields", conflict.ID, key.key, key.source),
					},
					"subcontractor_id": conflict.ID,
				})
			}

			return item(externalID, models.OutcomeSkipped, "conflicts with existing subcontractor", map[string]interface{}{
				"conflict": map[string]interface{}{
					"subcontractor_id": conflict.ID,
					"abn":              key.key,
					"matched_field":    string(key.source),
				},
			})
		}
	}

	// New entity.
	sub, err := e.subs.Create(ctx, mapper.SubcontractorFromVendor(conn.CompanyID, vendor, key.key))
	if err != nil {
		return itemError(externalID, fmt.Sprintf("failed to create subcontractor: %v", err))
	}
	if err := e.touchVendorMapping(ctx, conn, externalID, sub.ID); err != nil {
		return itemError(externalID, fmt.Sprintf("failed to create mapping: %v", err))
	}

	var details map[string]interface{}
	if !key.ok {
		// Created anyway, but without a business number future duplicates
		// cannot be detected.
		details = map[string]interface{}{
			"warnings": []string{"no business number found on vendor; duplicate detection is not possible for this record"},
		}
	}
	return item(externalID, models.OutcomeCreated, "subcontractor created", details)
}

func (e *SyncEngine) syncProject(
	ctx context.Context,
	conn *models.OAuthConnection,
	externalID int64,
	external *procore.Project,
	existing *models.EntityMapping,
	opts SyncOptions,
) models.SyncItemResult {
	if external == nil {
		return itemError(externalID, "project not found in external system")
	}

	if existing != nil {
		if !opts.UpdateExisting {
			return item(externalID, models.OutcomeSkipped, "already synced", nil)
		}

		local, err := e.projects.FindByID(ctx, conn.CompanyID, existing.LocalID)
		if err != nil {
			return itemError(externalID, fmt.Sprintf("failed to load project: %v", err))
		}
		if local == nil {
			return itemError(externalID, "mapped project no longer exists")
		}

		mapper.ApplyProjectUpdate(local, external)
		if err := e.projects.Update(ctx, local); err != nil {
			return itemError(externalID, fmt.Sprintf("failed to update project: %v", err))
		}
		if err := e.touchProjectMapping(ctx, conn, externalID, local.ID); err != nil {
			return itemError(externalID, fmt.Sprintf("failed to update mapping: %v", err))
		}

		return item(externalID, models.OutcomeUpdated, "project updated", nil)
	}

	local, err := e.projects.Create(ctx, mapper.ProjectFromExternal(conn.CompanyID, external))
	if err != nil {
		return itemError(externalID, fmt.Sprintf("failed to create project: %v", err))
	}
	if err := e.touchProjectMapping(ctx, conn, externalID, local.ID); err != nil {
		return itemError(externalID, fmt.Sprintf("failed to create mapping: %v", err))
	}

	return item(externalID, models.OutcomeCreated, "project created", nil)
}

// fetchVendors pages through the listing until every requested id has
// been seen or the listing runs out. Cancellation is honoured between
// pages so a hung batch cannot run unbounded.
func (e *SyncEngine) fetchVendors(ctx context.Context, conn *models.OAuthConnection, externalIDs []int64, projectID int64) (map[int64]*procore.Vendor, error) {
	want := make(map[int64]bool, len(externalIDs))
	for _, id := range externalIDs {
		want[id] = true
	}

	found := make(map[int64]*procore.Vendor, len(externalIDs))
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var resp *procore.VendorPage
		err := e.coordinator.Do(ctx, conn, func(accessToken string) error {
			var callErr error
			if projectID != 0 {
				resp, callErr = e.client.ListProjectVendors(ctx, accessToken, projectID, page, e.pageSize)
			} else {
				resp, callErr = e.client.ListVendors(ctx, accessToken, page, e.pageSize, true)
			}
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for i := range resp.Vendors {
			v := resp.Vendors[i]
			if want[v.ID] {
				found[v.ID] = &v
			}
		}

		if len(found) == len(want) || !resp.HasMore {
			return found, nil
		}
	}
}

func (e *SyncEngine) fetchProjects(ctx context.Context, conn *models.OAuthConnection, externalIDs []int64) (map[int64]*procore.Project, error) {
	want := make(map[int64]bool, len(externalIDs))
	for _, id := range externalIDs {
		want[id] = true
	}

	found := make(map[int64]*procore.Project, len(externalIDs))
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var resp *procore.ProjectPage
		err := e.coordinator.Do(ctx, conn, func(accessToken string) error {
			var callErr error
			resp, callErr = e.client.ListProjects(ctx, accessToken, page, e.pageSize)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for i := range resp.Projects {
			p := resp.Projects[i]
			if want[p.ID] {
				found[p.ID] = &p
			}
		}

		if len(found) == len(want) || !resp.HasMore {
			return found, nil
		}
	}
}

func (e *SyncEngine) touchVendorMapping(ctx context.Context, conn *models.OAuthConnection, externalID int64, localID string) error {
	_, err := e.mappings.Upsert(ctx, &models.EntityMapping{
		CompanyID:         conn.CompanyID,
		ExternalCompanyID: conn.ExternalCompanyID,
		EntityType:        models.EntityTypeVendor,
		ExternalID:        externalID,
		LocalType:         models.LocalTypeSubcontractor,
		LocalID:           localID,
		Direction:         models.DirectionInbound,
		Status:            models.MappingStatusActive,
	})
	return err
}

func (e *SyncEngine) touchProjectMapping(ctx context.Context, conn *models.OAuthConnection, externalID int64, localID string) error {
	_, err := e.mappings.Upsert(ctx, &models.EntityMapping{
		CompanyID:         conn.CompanyID,
		ExternalCompanyID: conn.ExternalCompanyID,
		EntityType:        models.EntityTypeProject,
		ExternalID:        externalID,
		LocalType:         models.LocalTypeProject,
		LocalID:           localID,
		Direction:         models.DirectionInbound,
		Status:            models.MappingStatusActive,
	})
	return err
}

// finishRun records the run in the audit log and emits a completion
// event. Failures here are logged, not surfaced: the run itself already
// succeeded.
func (e *SyncEngine) finishRun(ctx context.Context, companyID string, entityType models.EntityType, result *models.SyncResult) {
	e.log.Info("sync run completed",
		zap.String("company_id", companyID),
		zap.String("entity_type", string(entityType)),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Duration("duration", result.Duration))

	if e.audit != nil {
		err := e.audit.Insert(ctx, &models.AuditLog{
			CompanyID:  companyID,
			EntityType: string(entityType),
			EntityID:   "batch",
			Action:     "sync",
			Details: map[string]interface{}{
				"total":   result.Total,
				"created": result.Created,
				"updated": result.Updated,
				"skipped": result.Skipped,
				"errors":  result.Errors,
			},
		})
		if err != nil {
			e.log.Warn("failed to write audit entry", zap.Error(err))
		}
	}

	if e.events != nil {
		err := e.events.PublishEvent("sync.completed", companyID, map[string]interface{}{
			"entity_type": string(entityType),
			"total":       result.Total,
			"created":     result.Created,
			"updated":     result.Updated,
			"skipped":     result.Skipped,
			"errors":      result.Errors,
		})
		if err != nil {
			e.log.Warn("failed to publish sync event", zap.Error(err))
		}
	}
}

func item(externalID int64, outcome models.SyncOutcome, message string, details map[string]interface{}) models.SyncItemResult {
	return models.SyncItemResult{
		ExternalID: externalID,
		Outcome:    outcome,
		Message:    message,
		Details:    details,
	}
}

func itemError(externalID int64, message string) models.SyncItemResult {
	return item(externalID, models.OutcomeError, message, nil)
}
