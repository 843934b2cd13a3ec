package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ColumnMapping maps logical store fields to source column headers.
// An empty string means the field has no mapped column. Built once at
// upload time by the mapping inferrer and may be overridden by the caller
// before ingestion.
type ColumnMapping struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Postcode   string `json:"postcode,omitempty"`
	Country    string `json:"country,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Status     string `json:"status,omitempty"`
	OwnerName  string `json:"ownerName,omitempty"`
}

// IsZero reports whether no field has a mapped column
func (m ColumnMapping) IsZero() bool {
	return m == ColumnMapping{}
}

// NormalizedStoreRecord is a cleaned candidate store row flowing through the
// pipeline. It is mutated in place: normalization fills the text fields and
// region, geocoding fills latitude/longitude. The bulk upserter converts it
// into a Store row; it is never persisted as-is.
type NormalizedStoreRecord struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	Postcode   string   `json:"postcode,omitempty"`
	Country    string   `json:"country"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	ExternalID string   `json:"externalId,omitempty"`
	Status     string   `json:"status,omitempty"`
	OwnerName  string   `json:"ownerName,omitempty"`
	Region     string   `json:"region,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set
func (r *NormalizedStoreRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ValidationResult is the outcome of validating a single row. Schema
// violations are reported here, never raised as errors.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Duplicate match types
const (
	MatchTypeExternalID   = "external_id"
	MatchTypeAddressMatch = "address_match"
)

// DuplicateInfo flags a row as a likely duplicate of an earlier row in the
// same batch. Purely advisory: duplicates are surfaced to the operator, not
// dropped, and the bulk upserter does not consult them.
type DuplicateInfo struct {
	RowIndex    int     `json:"rowIndex"`
	DuplicateOf string  `json:"duplicateOf"`
	MatchType   string  `json:"matchType"`
	Confidence  float64 `json:"confidence"`
}

// GeocodeRequest is one address submitted to the geocoding provider
type GeocodeRequest struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Geocode result statuses
const (
	GeocodeStatusSuccess = "success"
	GeocodeStatusFailed  = "failed"
)

// GeocodeResult is the per-request outcome, correlated back to the request
// by array index
type GeocodeResult struct {
	Status    string   `json:"status"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Provider  string   `json:"provider,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ImportSummary holds the terminal counters of one ingestion run. Counters
// are only ever incremented during persistence.
type ImportSummary struct {
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	PendingGeocode int `json:"pendingGeocode"`
	Failed         int `json:"failed"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Country inference confidence tiers, highest first
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// CountryInference is the result of guessing the batch country when no
// country column is mapped
type CountryInference struct {
	Country    string `json:"country"`
	Confidence string `json:"confidence"`
	Method     string `json:"method"`
}

// UploadResponse is returned by the upload step: a preview of the parsed
// file plus the session id to pass to the ingest step
type UploadResponse struct {
	SessionID        string            `json:"sessionId"`
	Headers          []string          `json:"headers"`
	SampleRows       [][]string        `json:"sampleRows"`
	SuggestedMapping ColumnMapping     `json:"suggestedMapping"`
	TotalRows        int               `json:"totalRows"`
	InferredCountry  *CountryInference `json:"inferredCountry,omitempty"`
}

// IngestRequest drives the second phase of the import
type IngestRequest struct {
	SessionID string        `json:"sessionId" binding:"required"`
	Mapping   ColumnMapping `json:"mapping"`
	Country   string        `json:"country,omitempty"`
}

// IngestResult extends the import summary with run diagnostics
type IngestResult struct {
	Success          bool             `json:"success"`
	Summary          ImportSummary    `json:"summary"`
	TotalRows        int              `json:"totalRows"`
	ValidRows        int              `json:"validRows"`
	InvalidRows      int              `json:"invalidRows"`
	Duplicates       []DuplicateInfo  `json:"duplicates,omitempty"`
	RowErrors        []ImportRowError `json:"rowErrors,omitempty"`
	GeocodedCount    int              `json:"geocodedCount"`
	VerifiedGeocoded int64            `json:"verifiedGeocoded"`
	InferredCountry  string           `json:"inferredCountry,omitempty"`
	ProcessingMs     int64            `json:"processingTimeMs"`
	PhaseTimingsMs   map[string]int64 `json:"phaseTimingsMs,omitempty"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// StoreImportColumns returns the column definitions for store import
func StoreImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "name", Description: "Store name", Required: true, Type: "string", Example: "Downtown Flagship"},
		{Name: "address", Description: "Street address", Required: true, Type: "string", Example: "42 Market Street"},
		{Name: "city", Description: "City or town", Required: true, Type: "string", Example: "Springfield"},
		{Name: "postcode", Description: "Postal / ZIP code", Required: false, Type: "string", Example: "62704"},
		{Name: "country", Description: "Country name or ISO code", Required: false, Type: "string", Example: "United States"},
		{Name: "externalId", Description: "Your unique store identifier", Required: false, Type: "string", Example: "ST-0042"},
		{Name: "status", Description: "Open, Closed or Planned", Required: false, Type: "string", Example: "Open"},
		{Name: "ownerName", Description: "Franchisee or owner name", Required: false, Type: "string", Example: "Jordan Lee"},
		{Name: "latitude", Description: "Latitude (leave blank to geocode)", Required: false, Type: "number", Example: "39.7817"},
		{Name: "longitude", Description: "Longitude (leave blank to geocode)", Required: false, Type: "number", Example: "-89.6501"},
	}
}

// StoreImportTemplate returns the template definition for stores
func StoreImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "stores",
		Version: "1.0",
		Columns: StoreImportColumns(),
	}
}
