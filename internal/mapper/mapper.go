// Package mapper converts external platform shapes into RiskSure's own
// entities and applies update/merge policy when a counterpart already
// exists.
package mapper

import (
	"strings"

	"github.com/juggajay/RiskSure.AI-sub002/internal/models"
	"github.com/juggajay/RiskSure.AI-sub002/internal/procore"
)

// SubcontractorFromVendor builds a new local record from an external
// vendor. abn may be empty when no business number could be extracted.
func SubcontractorFromVendor(companyID string, v *procore.Vendor, abn string) *models.Subcontractor {
	return &models.Subcontractor{
		CompanyID: companyID,
		Name:      vendorName(v),
		Email:     strings.TrimSpace(v.EmailAddress),
		Phone:     strings.TrimSpace(v.BusinessPhone),
		ABN:       abn,
		Status:    "active",
	}
}

// ApplyVendorUpdate refreshes a synced subcontractor from the vendor's
// current fields. The ABN is only ever filled in, never overwritten: a
// locally-entered business number is authoritative.
func ApplyVendorUpdate(s *models.Subcontractor, v *procore.Vendor, abn string) {
	s.Name = vendorName(v)
	if email := strings.TrimSpace(v.EmailAddress); email != "" {
		s.Email = email
	}
	if phone := strings.TrimSpace(v.BusinessPhone); phone != "" {
		s.Phone = phone
	}
	if s.ABN == "" && abn != "" {
		s.ABN = abn
	}
}

// ProjectFromExternal builds a new local project from an external one.
func ProjectFromExternal(companyID string, p *procore.Project) *models.Project {
	status := "active"
	if !p.Active {
		status = "inactive"
	}
	return &models.Project{
		CompanyID: companyID,
		Name:      strings.TrimSpace(p.Name),
		Address:   strings.TrimSpace(p.Address),
		Status:    status,
	}
}

// ApplyProjectUpdate refreshes a synced project from the external record.
func ApplyProjectUpdate(local *models.Project, p *procore.Project) {
	local.Name = strings.TrimSpace(p.Name)
	if addr := strings.TrimSpace(p.Address); addr != "" {
		local.Address = addr
	}
	if p.Active {
		local.Status = "active"
	} else {
		local.Status = "inactive"
	}
}

func vendorName(v *procore.Vendor) string {
	if name := strings.TrimSpace(v.Name); name != "" {
		return name
	}
	return strings.TrimSpace(v.AbbreviatedName)
}
