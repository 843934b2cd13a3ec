package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRowValid(t *testing.T) {
	row := []string{"Acme", "1 Main St", "Springfield", "62704", "US", "Open", "EXT-1"}
	headers := []string{"name", "address", "city", "postcode", "country", "status", "external id"}
	mapping := SuggestMapping(headers)

	result := ValidateRow(row, headers, mapping)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateRowMissingAddress(t *testing.T) {
	row := []string{"Acme", "", "Springfield"}
	headers := []string{"name", "address", "city"}
	mapping := SuggestMapping(headers)

	result := ValidateRow(row, headers, mapping)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "address: is required")
}

func TestValidateRowNameRequiredOnlyWithoutAddress(t *testing.T) {
	headers := []string{"name", "address"}
	mapping := SuggestMapping(headers)

	// Address present: the name falls back to it, so only the row with both
	// blank reports a name error
	withAddress := ValidateRow([]string{"", "1 Main St"}, headers, mapping)
	assert.NotContains(t, withAddress.Errors, "name: is required")

	withNeither := ValidateRow([]string{"", ""}, headers, mapping)
	assert.Contains(t, withNeither.Errors, "name: is required")
	assert.Contains(t, withNeither.Errors, "address: is required")
}

func TestValidateRowRejectsMalformedCountry(t *testing.T) {
	headers := []string{"name", "address", "country"}
	mapping := SuggestMapping(headers)

	result := ValidateRow([]string{"Acme", "1 Main St", "12345"}, headers, mapping)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "country")
}

func TestValidateRowCoordinateRange(t *testing.T) {
	headers := []string{"name", "address", "latitude", "longitude"}
	mapping := SuggestMapping(headers)

	outOfRange := ValidateRow([]string{"Acme", "1 Main St", "95.0", "200.0"}, headers, mapping)
	assert.False(t, outOfRange.IsValid)
	assert.Len(t, outOfRange.Errors, 2)

	nonNumeric := ValidateRow([]string{"Acme", "1 Main St", "north", "west"}, headers, mapping)
	assert.False(t, nonNumeric.IsValid)

	inRange := ValidateRow([]string{"Acme", "1 Main St", "39.78", "-89.65"}, headers, mapping)
	assert.True(t, inRange.IsValid)
}

func TestValidateRowWarnings(t *testing.T) {
	headers := []string{"name", "address"}
	mapping := SuggestMapping(headers)

	result := ValidateRow([]string{"Acme", "1 Main St"}, headers, mapping)

	assert.True(t, result.IsValid)
	joined := ""
	for _, w := range result.Warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, "postcode")
	assert.Contains(t, joined, "coordinates")
	assert.Contains(t, joined, "externalId")
}

func TestValidateRowShortFieldWarnings(t *testing.T) {
	headers := []string{"name", "address"}
	mapping := SuggestMapping(headers)

	result := ValidateRow([]string{"Ab", "X1"}, headers, mapping)

	assert.True(t, result.IsValid)
	short := 0
	for _, w := range result.Warnings {
		if strings.Contains(w, "suspiciously short") {
			short++
		}
	}
	assert.Equal(t, 2, short)
}
