package procore

// Vendor is a vendor record as returned by the external platform. Any of
// the identifier fields may or may not carry an ABN; extraction lives in
// the sync layer, not here.
type Vendor struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AbbreviatedName string `json:"abbreviated_name"`
	EntityType      string `json:"entity_type"`
	EntityID        string `json:"entity_id"`
	TaxID           string `json:"tax_id"`
	BusinessID      string `json:"business_id"`
	EmailAddress    string `json:"email_address"`
	BusinessPhone   string `json:"business_phone"`
	Active          bool   `json:"active"`
}

type Project struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// VendorPage is one page of a vendor listing. The client never
// auto-paginates; callers drive the page loop themselves.
type VendorPage struct {
	Vendors []Vendor `json:"vendors"`
	HasMore bool     `json:"has_more"`
	Total   int      `json:"total"`
}

type ProjectPage struct {
	Projects []Project `json:"projects"`
	HasMore  bool      `json:"has_more"`
	Total    int       `json:"total"`
}

// PushOutcome is the platform's acknowledgement of a compliance update.
type PushOutcome struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
