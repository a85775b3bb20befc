package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

type fakeSubFinder struct {
	subs    []*models.Subcontractor
	gotABNs []string
	err     error
}

func (f *fakeSubFinder) FindByABNs(ctx context.Context, companyID string, abns []string) ([]*models.Subcontractor, error) {
	f.gotABNs = abns
	return f.subs, f.err
}

func TestExtractBusinessNumber(t *testing.T) {
	r := NewConflictResolver(&fakeSubFinder{})

	tests := []struct {
		name       string
		vendor     procore.Vendor
		wantKey    string
		wantSource KeySource
		wantOK     bool
	}{
		{
			name:       "typed entity id wins over everything",
			vendor:     procore.Vendor{EntityType: "abn", EntityID: "51824753556", TaxID: "11111111111"},
			wantKey:    "51824753556",
			wantSource: KeySourceEntityID,
			wantOK:     true,
		},
		{
			name:       "typed entity id is returned verbatim",
			vendor:     procore.Vendor{EntityType: "ABN", EntityID: "51 824 753 556"},
			wantKey:    "51 824 753 556",
			wantSource: KeySourceEntityID,
			wantOK:     true,
		},
		{
			name:       "entity id with wrong type is ignored",
			vendor:     procore.Vendor{EntityType: "acn", EntityID: "51824753556", TaxID: "11111111111"},
			wantKey:    "11111111111",
			wantSource: KeySourceTaxID,
			wantOK:     true,
		},
		{
			name:       "tax id beats business id",
			vendor:     procore.Vendor{TaxID: "11111111111", BusinessID: "22222222222"},
			wantKey:    "11111111111",
			wantSource: KeySourceTaxID,
			wantOK:     true,
		},
		{
			name:       "whitespace is stripped from heuristic fields",
			vendor:     procore.Vendor{TaxID: "12 345 678 901"},
			wantKey:    "12345678901",
			wantSource: KeySourceTaxID,
			wantOK:     true,
		},
		{
			name:       "non-matching tax id falls through to business id",
			vendor:     procore.Vendor{TaxID: "not-an-abn", BusinessID: "22222222222"},
			wantKey:    "22222222222",
			wantSource: KeySourceBusinessID,
			wantOK:     true,
		},
		{
			name:       "abbreviated name is the last resort",
			vendor:     procore.Vendor{AbbreviatedName: "33333333333"},
			wantKey:    "33333333333",
			wantSource: KeySourceAbbreviatedName,
			wantOK:     true,
		},
		{
			name:   "ten digits is not a business number",
			vendor: procore.Vendor{TaxID: "1234567890"},
			wantOK: false,
		},
		{
			name:   "twelve digits is not a business number",
			vendor: procore.Vendor{TaxID: "123456789012"},
			wantOK: false,
		},
		{
			name:   "fields are never combined",
			vendor: procore.Vendor{TaxID: "12345", BusinessID: "678901"},
			wantOK: false,
		},
		{
			name:   "no candidate fields",
			vendor: procore.Vendor{Name: "Acme Constructions"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, source, ok := r.ExtractBusinessNumber(&tt.vendor)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantSource, source)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	finder := &fakeSubFinder{
		subs: []*models.Subcontractor{
			{ID: "sub_1", ABN: "11111111111"},
			{ID: "sub_2", ABN: "22222222222"},
		},
	}
	r := NewConflictResolver(finder)

	conflicts, err := r.FindConflicts(context.Background(), "company_001", []string{"11111111111", "22222222222", "33333333333"})
	require.NoError(t, err)

	require.Len(t, conflicts, 2)
	assert.Equal(t, "sub_1", conflicts["11111111111"].ID)
	assert.Equal(t, "sub_2", conflicts["22222222222"].ID)
	assert.Nil(t, conflicts["33333333333"])
	assert.Equal(t, []string{"11111111111", "22222222222", "33333333333"}, finder.gotABNs)
}

func TestFindConflictsNoKeysSkipsLookup(t *testing.T) {
	finder := &fakeSubFinder{}
	r := NewConflictResolver(finder)

	conflicts, err := r.FindConflicts(context.Background(), "company_001", nil)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Nil(t, finder.gotABNs)
}
