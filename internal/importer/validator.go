package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"stores-service/internal/models"
)

// Country values must look like a name or ISO code: letters, spaces and a
// few separators, no digits
var countryFormRe = regexp.MustCompile(`^[A-Za-z][A-Za-z\s.'\-]{0,55}$`)

const shortFieldThreshold = 3

// ValidateRow checks a raw row against the store schema, using the same
// mapping step as normalization. Violations are reported in the result,
// never raised: a row with zero errors is valid regardless of warnings.
func ValidateRow(row []string, headers []string, mapping models.ColumnMapping) models.ValidationResult {
	idx := resolveMapping(headers, mapping)

	name := cleanText(cell(row, idx.name))
	address := cleanText(cell(row, idx.address))
	country := cleanText(cell(row, idx.country))
	postcode := cleanText(cell(row, idx.postcode))
	externalID := cleanText(cell(row, idx.externalID))

	var errs, warnings []string

	// Name falls back to address during normalization, so a row needs at
	// least one of the two
	if name == "" && address == "" {
		errs = append(errs, "name: is required")
	}
	if address == "" {
		errs = append(errs, "address: is required")
	}

	if country != "" && !countryFormRe.MatchString(country) {
		errs = append(errs, fmt.Sprintf("country: %q is not a valid country name or code", country))
	}

	lat, latErr := checkCoordinate(cell(row, idx.latitude), -90, 90, "latitude")
	lng, lngErr := checkCoordinate(cell(row, idx.longitude), -180, 180, "longitude")
	if latErr != "" {
		errs = append(errs, latErr)
	}
	if lngErr != "" {
		errs = append(errs, lngErr)
	}

	if postcode == "" {
		warnings = append(warnings, "postcode: missing postcode")
	}
	if lat == nil || lng == nil {
		warnings = append(warnings, "coordinates: missing coordinates, row will be geocoded")
	}
	if externalID == "" {
		warnings = append(warnings, "externalId: missing external id, duplicate detection falls back to address matching")
	}
	if name != "" && len(name) < shortFieldThreshold {
		warnings = append(warnings, fmt.Sprintf("name: %q is suspiciously short", name))
	}
	if address != "" && len(address) < shortFieldThreshold {
		warnings = append(warnings, fmt.Sprintf("address: %q is suspiciously short", address))
	}

	return models.ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

// checkCoordinate parses an optional coordinate cell, returning an error
// message when present but non-numeric or out of range
func checkCoordinate(s string, min, max float64, field string) (*float64, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Sprintf("%s: %q is not a number", field, s)
	}
	if v < min || v > max {
		return nil, fmt.Sprintf("%s: %v is out of range [%v, %v]", field, v, min, max)
	}
	return &v, ""
}
