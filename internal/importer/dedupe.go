package importer

import (
	"regexp"
	"strconv"
	"strings"

	"stores-service/internal/models"
)

// Weighted similarity threshold above which two rows with the same
// composite key are flagged as the same physical store
const duplicateConfidenceThreshold = 0.8

// Similarity weights per field
const (
	nameWeight    = 0.4
	addressWeight = 0.3
	cityWeight    = 0.2
	countryWeight = 0.1
)

var nonWordRe = regexp.MustCompile(`[^\w]+`)

// DetectDuplicates scans the batch for rows describing the same physical
// store. External id matches are authoritative (confidence 1.0); otherwise
// rows sharing a composite address key are scored by weighted string
// similarity. Detection is non-destructive: rows are annotated, never
// removed or merged.
func DetectDuplicates(records []models.NormalizedStoreRecord) []models.DuplicateInfo {
	duplicates := make([]models.DuplicateInfo, 0)
	seenExternal := make(map[string]int, len(records))
	seenComposite := make(map[string]int, len(records))

	for i := range records {
		record := &records[i]

		if record.ExternalID != "" {
			if first, ok := seenExternal[record.ExternalID]; ok {
				duplicates = append(duplicates, models.DuplicateInfo{
					RowIndex:    i,
					DuplicateOf: duplicateRef(&records[first], first),
					MatchType:   models.MatchTypeExternalID,
					Confidence:  1.0,
				})
				// External id is authoritative, skip the fuzzy checks
				continue
			}
			seenExternal[record.ExternalID] = i
		}

		key := compositeKey(record)
		if first, ok := seenComposite[key]; ok {
			confidence := similarityScore(record, &records[first])
			if confidence >= duplicateConfidenceThreshold {
				duplicates = append(duplicates, models.DuplicateInfo{
					RowIndex:    i,
					DuplicateOf: duplicateRef(&records[first], first),
					MatchType:   models.MatchTypeAddressMatch,
					Confidence:  confidence,
				})
			}
			continue
		}
		seenComposite[key] = i
	}

	return duplicates
}

// compositeKey builds a coarse bucket key from the address fields; rows in
// the same bucket are compared pairwise
func compositeKey(r *models.NormalizedStoreRecord) string {
	parts := []string{r.Name, r.Address, r.City, r.Postcode, r.Country}
	for i, p := range parts {
		parts[i] = nonWordRe.ReplaceAllString(strings.ToLower(p), "")
	}
	return strings.Join(parts, "|")
}

// similarityScore combines per-field similarities into a weighted score
func similarityScore(a, b *models.NormalizedStoreRecord) float64 {
	score := nameWeight*stringSimilarity(a.Name, b.Name) +
		addressWeight*stringSimilarity(a.Address, b.Address)
	if strings.EqualFold(a.City, b.City) {
		score += cityWeight
	}
	if strings.EqualFold(a.Country, b.Country) {
		score += countryWeight
	}
	return score
}

// stringSimilarity is 1 minus the normalized Levenshtein distance
func stringSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance with a two-row DP table
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// duplicateRef describes the earlier row a duplicate points at
func duplicateRef(r *models.NormalizedStoreRecord, index int) string {
	if r.ExternalID != "" {
		return r.ExternalID
	}
	if r.Name != "" {
		return r.Name
	}
	return "row " + strconv.Itoa(index)
}
