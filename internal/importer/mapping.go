package importer

import (
	"regexp"
	"strings"

	"stores-service/internal/models"
)

// Logical field names, in the fixed order mapping inference assigns them.
// The order matters for determinism: earlier fields claim headers first.
var mappingFields = []string{"name", "address", "city", "postcode", "country", "externalId", "status", "ownerName"}

// Header synonyms per logical field. Compared case-insensitively with
// whitespace collapsed.
var fieldSynonyms = map[string][]string{
	"name":       {"name", "store", "store name", "storename", "location", "location name", "site name", "branch", "title"},
	"address":    {"address", "street", "street address", "address line 1", "address1", "addr", "road"},
	"city":       {"city", "town", "locality", "municipality", "city, state zip", "city state zip"},
	"postcode":   {"postcode", "post code", "zip", "zip code", "zipcode", "postal code", "postal"},
	"country":    {"country", "nation", "country code", "country name"},
	"externalId": {"external id", "externalid", "store id", "store number", "store no", "id", "ref", "reference", "code"},
	"status":     {"status", "store status", "open status", "operating status"},
	"ownerName":  {"owner", "owner name", "ownername", "franchisee", "operator", "manager"},
}

var headerSpaceRe = regexp.MustCompile(`\s+`)

// SuggestMapping guesses which source header corresponds to each logical
// store field. It is deterministic: the same header set always yields the
// same mapping. Fields without a match are left unmapped; it never fails.
func SuggestMapping(headers []string) models.ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	assigned := make(map[int]bool, len(headers))
	picks := make(map[string]string, len(mappingFields))

	// First pass: exact synonym matches win
	for _, field := range mappingFields {
		for i, h := range normalized {
			if assigned[i] || h == "" {
				continue
			}
			if matchesExact(field, h) {
				picks[field] = headers[i]
				assigned[i] = true
				break
			}
		}
	}

	// Second pass: header containing a synonym as a fallback
	for _, field := range mappingFields {
		if _, ok := picks[field]; ok {
			continue
		}
		for i, h := range normalized {
			if assigned[i] || h == "" {
				continue
			}
			if matchesLoose(field, h) {
				picks[field] = headers[i]
				assigned[i] = true
				break
			}
		}
	}

	return models.ColumnMapping{
		Name:       picks["name"],
		Address:    picks["address"],
		City:       picks["city"],
		Postcode:   picks["postcode"],
		Country:    picks["country"],
		ExternalID: picks["externalId"],
		Status:     picks["status"],
		OwnerName:  picks["ownerName"],
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return headerSpaceRe.ReplaceAllString(h, " ")
}

func matchesExact(field, header string) bool {
	for _, syn := range fieldSynonyms[field] {
		if header == syn {
			return true
		}
	}
	return false
}

func matchesLoose(field, header string) bool {
	for _, syn := range fieldSynonyms[field] {
		// Single-word synonyms must appear as a whole word to avoid
		// "id" claiming "holiday hours" style headers
		if len(syn) <= 3 {
			for _, w := range strings.Fields(header) {
				if w == syn {
					return true
				}
			}
			continue
		}
		if strings.Contains(header, syn) {
			return true
		}
	}
	return false
}

// fieldIndexes resolves a mapping against a concrete header row once, so
// the validator and normalizer extract cells by position. -1 means the
// field has no usable column.
type fieldIndexes struct {
	name       int
	address    int
	city       int
	postcode   int
	country    int
	externalID int
	status     int
	ownerName  int
	latitude   int
	longitude  int
}

func resolveMapping(headers []string, mapping models.ColumnMapping) fieldIndexes {
	idx := fieldIndexes{
		name:       headerIndex(headers, mapping.Name),
		address:    headerIndex(headers, mapping.Address),
		city:       headerIndex(headers, mapping.City),
		postcode:   headerIndex(headers, mapping.Postcode),
		country:    headerIndex(headers, mapping.Country),
		externalID: headerIndex(headers, mapping.ExternalID),
		status:     headerIndex(headers, mapping.Status),
		ownerName:  headerIndex(headers, mapping.OwnerName),
		latitude:   -1,
		longitude:  -1,
	}

	// Coordinates are not part of the logical mapping; they are picked up
	// by well-known header names when present
	for i, h := range headers {
		switch normalizeHeader(h) {
		case "latitude", "lat":
			if idx.latitude == -1 {
				idx.latitude = i
			}
		case "longitude", "lng", "lon", "long":
			if idx.longitude == -1 {
				idx.longitude = i
			}
		}
	}

	return idx
}

func headerIndex(headers []string, header string) int {
	if header == "" {
		return -1
	}
	want := normalizeHeader(header)
	for i, h := range headers {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
