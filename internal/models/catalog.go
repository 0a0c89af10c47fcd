package models

// ValidationError represents a single validation error
type ValidationError struct {
	Line    int         `json:"line,omitempty"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Catalog resources accepted by the bulk loader
const (
	CatalogJournals = "journals"
	CatalogPlans    = "plans"
)

// ValidCatalogResources defines the resources that can be bulk loaded
var ValidCatalogResources = map[string]bool{
	CatalogJournals: true,
	CatalogPlans:    true,
}

// CatalogImportResult summarizes a bulk catalog load
type CatalogImportResult struct {
	Resource   string            `json:"resource"`
	Total      int               `json:"total_records"`
	Inserted   int               `json:"inserted_count"`
	Failed     int               `json:"failed_count"`
	DurationMs int64             `json:"duration_ms"`
	Errors     []ValidationError `json:"errors,omitempty"`
}
