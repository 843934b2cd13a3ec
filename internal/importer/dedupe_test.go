package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stores-service/internal/models"
)

func record(name, address, city, country, externalID string) models.NormalizedStoreRecord {
	return models.NormalizedStoreRecord{
		Name:       name,
		Address:    address,
		City:       city,
		Country:    country,
		ExternalID: externalID,
	}
}

func TestDetectDuplicatesByExternalID(t *testing.T) {
	records := []models.NormalizedStoreRecord{
		record("Acme Downtown", "1 Main St", "Springfield", "United States", "EXT-1"),
		record("Globex", "2 Oak Ave", "Shelbyville", "United States", "EXT-2"),
		record("Acme DT", "1 Main Street", "Springfield", "United States", "EXT-1"),
	}

	duplicates := DetectDuplicates(records)

	require.Len(t, duplicates, 1)
	assert.Equal(t, 2, duplicates[0].RowIndex)
	assert.Equal(t, "EXT-1", duplicates[0].DuplicateOf)
	assert.Equal(t, models.MatchTypeExternalID, duplicates[0].MatchType)
	assert.Equal(t, 1.0, duplicates[0].Confidence)
}

func TestDetectDuplicatesByAddressMatch(t *testing.T) {
	records := []models.NormalizedStoreRecord{
		record("Acme Downtown", "1 Main St", "Springfield", "United States", ""),
		record("Acme Downtown", "1 Main St", "Springfield", "United States", ""),
	}

	duplicates := DetectDuplicates(records)

	require.Len(t, duplicates, 1)
	assert.Equal(t, 1, duplicates[0].RowIndex)
	assert.Equal(t, "Acme Downtown", duplicates[0].DuplicateOf)
	assert.Equal(t, models.MatchTypeAddressMatch, duplicates[0].MatchType)
	assert.InDelta(t, 1.0, duplicates[0].Confidence, 0.0001)
}

func TestDetectDuplicatesCaseAndPunctuationInsensitive(t *testing.T) {
	records := []models.NormalizedStoreRecord{
		record("Acme Downtown", "1 Main St.", "Springfield", "United States", ""),
		record("ACME DOWNTOWN", "1 Main St", "SPRINGFIELD", "united states", ""),
	}

	duplicates := DetectDuplicates(records)

	require.Len(t, duplicates, 1)
	assert.GreaterOrEqual(t, duplicates[0].Confidence, 0.8)
}

func TestDetectDuplicatesDistinctStores(t *testing.T) {
	records := []models.NormalizedStoreRecord{
		record("Acme Downtown", "1 Main St", "Springfield", "United States", "EXT-1"),
		record("Acme Uptown", "99 North Blvd", "Springfield", "United States", "EXT-2"),
		record("Globex", "2 Oak Ave", "Shelbyville", "United States", ""),
	}

	assert.Empty(t, DetectDuplicates(records))
}

func TestDetectDuplicatesExternalIDIsAuthoritative(t *testing.T) {
	// Same external id on completely different addresses still flags at 1.0
	records := []models.NormalizedStoreRecord{
		record("Acme Downtown", "1 Main St", "Springfield", "United States", "EXT-1"),
		record("Totally Different", "99 Elsewhere Rd", "Shelbyville", "Canada", "EXT-1"),
	}

	duplicates := DetectDuplicates(records)

	require.Len(t, duplicates, 1)
	assert.Equal(t, models.MatchTypeExternalID, duplicates[0].MatchType)
	assert.Equal(t, 1.0, duplicates[0].Confidence)
}

func TestDetectDuplicatesIsNonDestructive(t *testing.T) {
	records := []models.NormalizedStoreRecord{
		record("Acme", "1 Main St", "Springfield", "United States", ""),
		record("Acme", "1 Main St", "Springfield", "United States", ""),
	}
	before := make([]models.NormalizedStoreRecord, len(records))
	copy(before, records)

	DetectDuplicates(records)

	assert.Equal(t, before, records)
}

func TestDetectDuplicatesLargeBatch(t *testing.T) {
	records := make([]models.NormalizedStoreRecord, 0, 120)
	for i := 0; i < 118; i++ {
		records = append(records, record(
			fmt.Sprintf("Store %d", i),
			fmt.Sprintf("%d Commerce Way", i),
			"Springfield", "United States",
			fmt.Sprintf("EXT-%d", i),
		))
	}
	// Two duplicates of earlier rows
	records = append(records, record("Store 7 Copy", "7 Commerce Way", "Springfield", "United States", "EXT-7"))
	records = append(records, record("Store 11", "11 Commerce Way", "Springfield", "United States", ""))

	duplicates := DetectDuplicates(records)

	require.Len(t, duplicates, 2)
	assert.Equal(t, 118, duplicates[0].RowIndex)
	assert.Equal(t, models.MatchTypeExternalID, duplicates[0].MatchType)
	assert.Equal(t, 119, duplicates[1].RowIndex)
	assert.Equal(t, models.MatchTypeAddressMatch, duplicates[1].MatchType)
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, stringSimilarity("Acme", "acme"))
	assert.Equal(t, 1.0, stringSimilarity("", ""))
	assert.InDelta(t, 0.8, stringSimilarity("abcde", "abcdX"), 0.0001)
	assert.Less(t, stringSimilarity("Acme Downtown", "Globex"), 0.5)
}
