package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

type fakePlatform struct {
	vendors      []procore.Vendor
	projects     []procore.Project
	pageSize     int
	vendorPages  int
	projectPages int
}

func (f *fakePlatform) ListVendors(ctx context.Context, accessToken string, page, perPage int, activeOnly bool) (*procore.VendorPage, error) {
	f.vendorPages++
	return pageOf(f.vendors, page, f.size(perPage)), nil
}

func (f *fakePlatform) ListProjectVendors(ctx context.Context, accessToken string, projectID int64, page, perPage int) (*procore.VendorPage, error) {
	f.vendorPages++
	return pageOf(f.vendors, page, f.size(perPage)), nil
}

func (f *fakePlatform) ListProjects(ctx context.Context, accessToken string, page, perPage int) (*procore.ProjectPage, error) {
	f.projectPages++
	return projectPageOf(f.projects, page, f.size(perPage)), nil
}

func (f *fakePlatform) size(perPage int) int {
	if f.pageSize > 0 {
		return f.pageSize
	}
	return perPage
}

func pageOf(all []procore.Vendor, page, perPage int) *procore.VendorPage {
	start := (page - 1) * perPage
	if start >= len(all) {
		return &procore.VendorPage{Total: len(all)}
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return &procore.VendorPage{
		Vendors: all[start:end],
		HasMore: end < len(all),
		Total:   len(all),
	}
}

func projectPageOf(all []procore.Project, page, perPage int) *procore.ProjectPage {
	start := (page - 1) * perPage
	if start >= len(all) {
		return &procore.ProjectPage{Total: len(all)}
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return &procore.ProjectPage{
		Projects: all[start:end],
		HasMore:  end < len(all),
		Total:    len(all),
	}
}

type fakeMappingStore struct {
	mappings map[string]*models.EntityMapping // keyed by entityType/externalID
	upserts  int
}

func mappingKey(entityType models.EntityType, externalID int64) string {
	return fmt.Sprintf("%s/%d", entityType, externalID)
}

func newFakeMappingStore() *fakeMappingStore {
	return &fakeMappingStore{mappings: make(map[string]*models.EntityMapping)}
}

func (f *fakeMappingStore) GetByExternalIDs(ctx context.Context, companyID, externalCompanyID string, entityType models.EntityType, externalIDs []int64) (map[int64]*models.EntityMapping, error) {
	out := make(map[int64]*models.EntityMapping)
	for _, id := range externalIDs {
		if m, ok := f.mappings[mappingKey(entityType, id)]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (f *fakeMappingStore) Upsert(ctx context.Context, m *models.EntityMapping) (*models.EntityMapping, error) {
	f.upserts++
	f.mappings[mappingKey(m.EntityType, m.ExternalID)] = m
	return m, nil
}

func (f *fakeMappingStore) GetByLocalEntity(ctx context.Context, localType models.LocalEntityType, localID string) (*models.EntityMapping, error) {
	for _, m := range f.mappings {
		if m.LocalType == localType && m.LocalID == localID {
			return m, nil
		}
	}
	return nil, nil
}

type fakeSubStore struct {
	subs      map[string]*models.Subcontractor
	nextID    int
	createErr map[int]error // keyed by creation ordinal, 1-based
	creates   int
	updates   int
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{subs: make(map[string]*models.Subcontractor)}
}

func (f *fakeSubStore) Create(ctx context.Context, s *models.Subcontractor) (*models.Subcontractor, error) {
	f.creates++
	if err := f.createErr[f.creates]; err != nil {
		return nil, err
	}
	f.nextID++
	created := *s
	created.ID = fmt.Sprintf("sub_%d", f.nextID)
	f.subs[created.ID] = &created
	return &created, nil
}

func (f *fakeSubStore) Update(ctx context.Context, s *models.Subcontractor) error {
	f.updates++
	copied := *s
	f.subs[s.ID] = &copied
	return nil
}

func (f *fakeSubStore) FindByID(ctx context.Context, companyID, id string) (*models.Subcontractor, error) {
	if s, ok := f.subs[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeSubStore) FindByABNs(ctx context.Context, companyID string, abns []string) ([]*models.Subcontractor, error) {
	wanted := make(map[string]bool, len(abns))
	for _, abn := range abns {
		wanted[abn] = true
	}
	var out []*models.Subcontractor
	for _, s := range f.subs {
		if wanted[s.ABN] {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeProjectStore struct {
	projects map[string]*models.Project
	nextID   int
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: make(map[string]*models.Project)}
}

func (f *fakeProjectStore) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	f.nextID++
	created := *p
	created.ID = fmt.Sprintf("proj_%d", f.nextID)
	f.projects[created.ID] = &created
	return &created, nil
}

func (f *fakeProjectStore) Update(ctx context.Context, p *models.Project) error {
	copied := *p
	f.projects[p.ID] = &copied
	return nil
}

func (f *fakeProjectStore) FindByID(ctx context.Context, companyID, id string) (*models.Project, error) {
	if p, ok := f.projects[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

type fakeAuditSink struct {
	entries []*models.AuditLog
}

func (f *fakeAuditSink) Insert(ctx context.Context, entry *models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeEventPublisher struct {
	events []string
}

func (f *fakeEventPublisher) PublishEvent(eventType, companyID string, data map[string]interface{}) error {
	f.events = append(f.events, eventType)
	return nil
}

type syncFixture struct {
	engine   *SyncEngine
	platform *fakePlatform
	mappings *fakeMappingStore
	subs     *fakeSubStore
	projects *fakeProjectStore
	audit    *fakeAuditSink
	events   *fakeEventPublisher
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	f := &syncFixture{
		platform: &fakePlatform{},
		mappings: newFakeMappingStore(),
		subs:     newFakeSubStore(),
		projects: newFakeProjectStore(),
		audit:    &fakeAuditSink{},
		events:   &fakeEventPublisher{},
	}
	coordinator := NewTokenCoordinator(&fakeConnStore{conn: validConn()}, &fakeRefresher{}, zap.NewNop())
	f.engine = NewSyncEngine(
		coordinator,
		f.platform,
		f.mappings,
		f.subs,
		f.projects,
		NewConflictResolver(f.subs),
		f.audit,
		f.events,
		zap.NewNop(),
	)
	return f
}

func outcomeOf(t *testing.T, result *models.SyncResult, externalID int64) models.SyncItemResult {
	t.Helper()
	for _, item := range result.Items {
		if item.ExternalID == externalID {
			return item
		}
	}
	t.Fatalf("no item for external id %d", externalID)
	return models.SyncItemResult{}
}

func TestSyncVendorsCreatesNewSubcontractors(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111", EmailAddress: "office@acme.example"},
		{ID: 102, Name: "Bravo Electrical", TaxID: "22222222222"},
	}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101, 102}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Errors)
	assert.Len(t, f.subs.subs, 2)
	assert.Equal(t, 2, f.mappings.upserts)
	assert.Equal(t, []string{"sync.completed"}, f.events.events)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "sync", f.audit.entries[0].Action)
}

func TestSyncVendorsSecondRunIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111"},
	}

	first, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, f.subs.subs, 1)
}

func TestSyncVendorsUpdateExistingRefreshesFields(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111"},
	}

	_, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{})
	require.NoError(t, err)

	f.platform.vendors[0].Name = "Acme Constructions Pty Ltd"
	f.platform.vendors[0].EmailAddress = "accounts@acme.example"

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	sub, err := f.subs.FindByID(context.Background(), "company_001", "sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "Acme Constructions Pty Ltd", sub.Name)
	assert.Equal(t, "accounts@acme.example", sub.Email)
}

func TestSyncVendorsConflictIsSkippedByDefault(t *testing.T) {
	f := newSyncFixture(t)
	// An unmapped subcontractor with the same ABN already exists.
	f.subs.subs["sub_99"] = &models.Subcontractor{ID: "sub_99", CompanyID: "company_001", Name: "Acme (manual)", ABN: "11111111111"}
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111"},
	}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, f.mappings.upserts)

	item := outcomeOf(t, result, 101)
	conflict, ok := item.Details["conflict"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sub_99", conflict["subcontractor_id"])
	assert.Equal(t, "11111111111", conflict["abn"])
	assert.Equal(t, "tax_id", conflict["matched_field"])
}

func TestSyncVendorsMergeAttachesMappingWithoutOverwriting(t *testing.T) {
	f := newSyncFixture(t)
	f.subs.subs["sub_99"] = &models.Subcontractor{ID: "sub_99", CompanyID: "company_001", Name: "Acme (manual)", Email: "manual@acme.example", ABN: "11111111111"}
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111", EmailAddress: "import@acme.example"},
	}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{MergeExisting: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Created)

	mapping, err := f.mappings.GetByLocalEntity(context.Background(), models.LocalTypeSubcontractor, "sub_99")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, int64(101), mapping.ExternalID)

	// Local fields are untouched by a merge.
	sub := f.subs.subs["sub_99"]
	assert.Equal(t, "Acme (manual)", sub.Name)
	assert.Equal(t, "manual@acme.example", sub.Email)

	item := outcomeOf(t, result, 101)
	warnings, ok := item.Details["warnings"].([]string)
	require.True(t, ok)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "sub_99")
}

func TestSyncVendorsSkipDuplicatesWinsOverMerge(t *testing.T) {
	f := newSyncFixture(t)
	f.subs.subs["sub_99"] = &models.Subcontractor{ID: "sub_99", CompanyID: "company_001", ABN: "11111111111"}
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111"},
	}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{
		MergeExisting:  true,
		SkipDuplicates: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, f.mappings.upserts)
}

func TestSyncVendorsMissingVendorIsAnErrorItem(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111"},
	}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101, 999}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Errors)
	item := outcomeOf(t, result, 999)
	assert.Equal(t, models.OutcomeError, item.Outcome)
	assert.Contains(t, item.Message, "not found")
}

func TestSyncVendorsItemFailureDoesNotAbortRun(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions", TaxID: "11111111111"},
		{ID: 102, Name: "Bravo Electrical", TaxID: "22222222222"},
		{ID: 103, Name: "Carter Plumbing", TaxID: "33333333333"},
	}
	f.subs.createErr = map[int]error{2: errors.New("insert failed")}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101, 102, 103}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, models.OutcomeError, outcomeOf(t, result, 102).Outcome)
	assert.Equal(t, models.OutcomeCreated, outcomeOf(t, result, 103).Outcome)
}

func TestSyncVendorsNoBusinessNumberCreatesWithWarning(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{
		{ID: 101, Name: "Acme Constructions"},
	}

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	item := outcomeOf(t, result, 101)
	warnings, ok := item.Details["warnings"].([]string)
	require.True(t, ok)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no business number")
	assert.Equal(t, "", f.subs.subs["sub_1"].ABN)
}

func TestSyncVendorsPagesThroughListing(t *testing.T) {
	f := newSyncFixture(t)
	for i := int64(1); i <= 5; i++ {
		f.platform.vendors = append(f.platform.vendors, procore.Vendor{
			ID:   100 + i,
			Name: fmt.Sprintf("Vendor %d", i),
		})
	}
	f.platform.pageSize = 2

	result, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{105}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	// Vendor 105 sits on page 3 of 2-per-page.
	assert.Equal(t, 3, f.platform.vendorPages)
}

func TestSyncVendorsValidation(t *testing.T) {
	f := newSyncFixture(t)

	var validation *ValidationError

	_, err := f.engine.SyncVendors(context.Background(), "", []int64{101}, SyncOptions{})
	assert.ErrorAs(t, err, &validation)

	_, err = f.engine.SyncVendors(context.Background(), "company_001", nil, SyncOptions{})
	assert.ErrorAs(t, err, &validation)
}

func TestSyncVendorsNotConnected(t *testing.T) {
	f := newSyncFixture(t)
	coordinator := NewTokenCoordinator(&fakeConnStore{}, &fakeRefresher{}, zap.NewNop())
	f.engine.coordinator = coordinator

	_, err := f.engine.SyncVendors(context.Background(), "company_001", []int64{101}, SyncOptions{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSyncProjects(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.projects = []procore.Project{
		{ID: 201, Name: "Riverside Apartments", Address: "1 River Rd", Active: true},
		{ID: 202, Name: "Harbour Tower", Active: false},
	}

	result, err := f.engine.SyncProjects(context.Background(), "company_001", []int64{201, 202}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	require.Len(t, f.projects.projects, 2)

	second, err := f.engine.SyncProjects(context.Background(), "company_001", []int64{201, 202}, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Skipped)

	f.platform.projects[1].Active = true
	third, err := f.engine.SyncProjects(context.Background(), "company_001", []int64{202}, SyncOptions{UpdateExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 1, third.Updated)
}

func TestSyncVendorsCancelledContext(t *testing.T) {
	f := newSyncFixture(t)
	f.platform.vendors = []procore.Vendor{{ID: 101, Name: "Acme"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.SyncVendors(ctx, "company_001", []int64{101}, SyncOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
