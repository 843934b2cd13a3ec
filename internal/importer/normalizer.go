package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"stores-service/internal/models"
)

const maxFieldLength = 255

// Characters allowed in free-text fields; everything else is stripped
var disallowedCharsRe = regexp.MustCompile(`[^\w\s\-.,#&()]`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// Well-known country codes and aliases mapped to canonical full names
var countryAliases = map[string]string{
	"US": "United States", "USA": "United States", "UNITED STATES OF AMERICA": "United States",
	"UK": "United Kingdom", "GB": "United Kingdom", "GREAT BRITAIN": "United Kingdom",
	"DE": "Germany", "DEU": "Germany",
	"FR": "France", "FRA": "France",
	"ES": "Spain", "ESP": "Spain",
	"IT": "Italy", "ITA": "Italy",
	"NL": "Netherlands", "NLD": "Netherlands", "THE NETHERLANDS": "Netherlands",
	"CA": "Canada", "CAN": "Canada",
	"MX": "Mexico", "MEX": "Mexico",
	"BR": "Brazil", "BRA": "Brazil",
	"AU": "Australia", "AUS": "Australia",
	"NZ": "New Zealand", "NZL": "New Zealand",
	"JP": "Japan", "JPN": "Japan",
	"CN": "China", "CHN": "China",
	"IN": "India", "IND": "India",
	"SG": "Singapore", "SGP": "Singapore",
	"KR": "South Korea", "KOR": "South Korea",
	"PL": "Poland", "POL": "Poland",
	"ZA": "South Africa", "ZAF": "South Africa",
	"AE": "United Arab Emirates", "UAE": "United Arab Emirates",
	"IE": "Ireland", "IRL": "Ireland",
	"CH": "Switzerland", "CHE": "Switzerland",
	"AT": "Austria", "AUT": "Austria",
	"BE": "Belgium", "BEL": "Belgium",
	"SE": "Sweden", "SWE": "Sweden",
	"NO": "Norway", "NOR": "Norway",
	"DK": "Denmark", "DNK": "Denmark",
	"PT": "Portugal", "PRT": "Portugal",
}

// Static country -> region table. Unrecognized countries get no region.
var countryRegions = map[string]models.Region{
	"United States": models.RegionAMER,
	"Canada":        models.RegionAMER,
	"Mexico":        models.RegionAMER,
	"Brazil":        models.RegionAMER,

	"United Kingdom":       models.RegionEMEA,
	"Germany":              models.RegionEMEA,
	"France":               models.RegionEMEA,
	"Spain":                models.RegionEMEA,
	"Italy":                models.RegionEMEA,
	"Netherlands":          models.RegionEMEA,
	"Poland":               models.RegionEMEA,
	"Ireland":              models.RegionEMEA,
	"Switzerland":          models.RegionEMEA,
	"Austria":              models.RegionEMEA,
	"Belgium":              models.RegionEMEA,
	"Sweden":               models.RegionEMEA,
	"Norway":               models.RegionEMEA,
	"Denmark":              models.RegionEMEA,
	"Portugal":             models.RegionEMEA,
	"South Africa":         models.RegionEMEA,
	"United Arab Emirates": models.RegionEMEA,

	"Japan":       models.RegionAPAC,
	"China":       models.RegionAPAC,
	"India":       models.RegionAPAC,
	"Australia":   models.RegionAPAC,
	"New Zealand": models.RegionAPAC,
	"Singapore":   models.RegionAPAC,
	"South Korea": models.RegionAPAC,
}

// NormalizeRow maps a raw row into a candidate store record, cleaning text,
// coercing types and deriving the region. It never fails: bad inputs
// degrade to best-effort defaults. inferredCountry (a name or ISO code) is
// substituted only when the row's own country cell is blank.
func NormalizeRow(row []string, headers []string, mapping models.ColumnMapping, inferredCountry string) models.NormalizedStoreRecord {
	idx := resolveMapping(headers, mapping)

	name := cell(row, idx.name)
	address := cell(row, idx.address)
	city := cell(row, idx.city)
	postcode := cell(row, idx.postcode)
	country := cell(row, idx.country)

	// A nameless row is still importable when it has an address
	if name == "" {
		name = address
	}

	// Combined "City, State ZIP" cells: split on the first comma and take
	// the trailing token of the remainder as the postcode
	if postcode == "" && strings.Contains(city, ",") {
		parts := strings.SplitN(city, ",", 2)
		city = strings.TrimSpace(parts[0])
		rest := strings.Fields(strings.TrimSpace(parts[1]))
		if len(rest) > 0 {
			postcode = rest[len(rest)-1]
		}
	}

	record := models.NormalizedStoreRecord{
		Name:       cleanText(name),
		Address:    cleanText(address),
		City:       titleCase(cleanText(city)),
		Postcode:   cleanText(postcode),
		Country:    CanonicalCountry(country),
		ExternalID: cleanText(cell(row, idx.externalID)),
		Status:     normalizeStatus(cell(row, idx.status)),
		OwnerName:  cleanText(cell(row, idx.ownerName)),
	}

	record.Latitude = parseCoordinate(cell(row, idx.latitude))
	record.Longitude = parseCoordinate(cell(row, idx.longitude))

	if record.Country == "" && inferredCountry != "" {
		record.Country = CanonicalCountry(inferredCountry)
	}
	if region, ok := countryRegions[record.Country]; ok {
		record.Region = string(region)
	}

	return record
}

// cleanText trims, collapses whitespace, strips disallowed characters and
// caps the length. Idempotent.
func cleanText(s string) string {
	s = disallowedCharsRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > maxFieldLength {
		s = strings.TrimSpace(s[:maxFieldLength])
	}
	return s
}

// titleCase capitalizes the first letter of each word and lowercases the
// rest. Idempotent.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}

// CanonicalCountry cleans a country value and maps well-known ISO codes
// and aliases to canonical full names. Unknown values are title-cased.
func CanonicalCountry(country string) string {
	country = cleanText(country)
	if country == "" {
		return ""
	}
	if canonical, ok := countryAliases[strings.ToUpper(country)]; ok {
		return canonical
	}
	titled := titleCase(country)
	if canonical, ok := countryAliases[strings.ToUpper(titled)]; ok {
		return canonical
	}
	return titled
}

// RegionForCountry returns the region for a canonical country name, or ""
// if the country is unrecognized
func RegionForCountry(country string) string {
	if region, ok := countryRegions[country]; ok {
		return string(region)
	}
	return ""
}

// normalizeStatus folds free-form status text into Open/Closed/Planned by
// keyword containment, defaulting to the title-cased input
func normalizeStatus(status string) string {
	s := strings.ToLower(cleanText(status))
	if s == "" {
		return ""
	}
	switch {
	case strings.Contains(s, "open") || strings.Contains(s, "operat") || strings.Contains(s, "active") || strings.Contains(s, "trading"):
		return string(models.StoreStatusOpen)
	case strings.Contains(s, "clos") || strings.Contains(s, "shut"):
		return string(models.StoreStatusClosed)
	case strings.Contains(s, "coming soon") || strings.Contains(s, "plan") || strings.Contains(s, "pending") || strings.Contains(s, "construction"):
		return string(models.StoreStatusPlanned)
	}
	return titleCase(s)
}

func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
