package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

// The ABN check is syntactic only (11 digits). External vendor data is not
// guaranteed to carry checksum-valid numbers, so the stricter checksum used
// for user-entered ABNs elsewhere does not apply here.
var businessNumberPattern = regexp.MustCompile(`^\d{11}$`)

// KeySource records which vendor field yielded the natural key.
type KeySource string

const (
	KeySourceEntityID        KeySource = "entity_id"
	KeySourceTaxID           KeySource = "tax_id"
	KeySourceBusinessID      KeySource = "business_id"
	KeySourceAbbreviatedName KeySource = "abbreviated_name"
)

type subcontractorFinder interface {
	FindByABNs(ctx context.Context, companyID string, abns []string) ([]*models.Subcontractor, error)
}

// ConflictResolver extracts the business number from heterogeneous vendor
// fields and checks it against existing subcontractors, so a vendor is
// never silently merged into the wrong record.
type ConflictResolver struct {
	subs subcontractorFinder
}

func NewConflictResolver(subs subcontractorFinder) *ConflictResolver {
	return &ConflictResolver{subs: subs}
}

// ExtractBusinessNumber tries each candidate field in priority order and
// returns the first hit. The typed entity id is authoritative when its
// declared type is "abn" and is returned verbatim; the remaining fields
// are heuristic fallbacks that must look like an 11-digit ABN once
// whitespace is stripped. Fields are never combined.
func (r *ConflictResolver) ExtractBusinessNumber(v *procore.Vendor) (key string, source KeySource, ok bool) {
	extractors := []struct {
		source KeySource
		fn     func(*procore.Vendor) (string, bool)
	}{
		{KeySourceEntityID, fromTypedEntityID},
		{KeySourceTaxID, func(v *procore.Vendor) (string, bool) { return elevenDigits(v.TaxID) }},
		{KeySourceBusinessID, func(v *procore.Vendor) (string, bool) { return elevenDigits(v.BusinessID) }},
		{KeySourceAbbreviatedName, func(v *procore.Vendor) (string, bool) { return elevenDigits(v.AbbreviatedName) }},
	}

	for _, e := range extractors {
		if key, ok := e.fn(v); ok {
			return key, e.source, true
		}
	}
	return "", "", false
}

// FindConflicts batch-loads existing subcontractors whose ABN matches any
// candidate key, in a single round trip. Callers only pass keys for
// vendors that have no mapping yet: an already-synced vendor is synced,
// not conflicting.
func (r *ConflictResolver) FindConflicts(ctx context.Context, companyID string, keys []string) (map[string]*models.Subcontractor, error) {
	conflicts := make(map[string]*models.Subcontractor)
	if len(keys) == 0 {
		return conflicts, nil
	}

	subs, err := r.subs.FindByABNs(ctx, companyID, keys)
	if err != nil {
		return nil, err
	}

	for _, s := range subs {
		if s.ABN != "" {
			conflicts[s.ABN] = s
		}
	}
	return conflicts, nil
}

func fromTypedEntityID(v *procore.Vendor) (string, bool) {
	if strings.EqualFold(strings.TrimSpace(v.EntityType), "abn") && v.EntityID != "" {
		return v.EntityID, true
	}
	return "", false
}

func elevenDigits(raw string) (string, bool) {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if businessNumberPattern.MatchString(stripped) {
		return stripped, true
	}
	return "", false
}
