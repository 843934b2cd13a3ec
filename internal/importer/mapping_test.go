package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stores-service/internal/models"
)

func TestSuggestMappingExactSynonyms(t *testing.T) {
	headers := []string{"Store", "Street", "Town", "Zip", "Nation", "Ref", "Status", "Owner"}

	mapping := SuggestMapping(headers)

	assert.Equal(t, "Store", mapping.Name)
	assert.Equal(t, "Street", mapping.Address)
	assert.Equal(t, "Town", mapping.City)
	assert.Equal(t, "Zip", mapping.Postcode)
	assert.Equal(t, "Nation", mapping.Country)
	assert.Equal(t, "Ref", mapping.ExternalID)
	assert.Equal(t, "Status", mapping.Status)
	assert.Equal(t, "Owner", mapping.OwnerName)
}

func TestSuggestMappingLooseContainment(t *testing.T) {
	headers := []string{"Store Location Name", "Full Street Address", "City/Town"}

	mapping := SuggestMapping(headers)

	assert.Equal(t, "Store Location Name", mapping.Name)
	assert.Equal(t, "Full Street Address", mapping.Address)
	assert.Equal(t, "City/Town", mapping.City)
}

func TestSuggestMappingShortSynonymsNeedWholeWord(t *testing.T) {
	// "id" must not claim unrelated headers containing those letters
	headers := []string{"Holiday Hours", "Store ID"}

	mapping := SuggestMapping(headers)

	assert.Equal(t, "Store ID", mapping.ExternalID)
}

func TestSuggestMappingHeaderClaimedOnce(t *testing.T) {
	// "Store" could match both name and externalId synonyms; name claims it
	// first and externalId stays unmapped
	headers := []string{"Store"}

	mapping := SuggestMapping(headers)

	assert.Equal(t, "Store", mapping.Name)
	assert.Empty(t, mapping.ExternalID)
}

func TestSuggestMappingDeterministic(t *testing.T) {
	headers := []string{"Name", "Address", "City", "Postcode", "Country"}

	first := SuggestMapping(headers)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SuggestMapping(headers))
	}
}

func TestSuggestMappingUnknownHeaders(t *testing.T) {
	mapping := SuggestMapping([]string{"Foo", "Bar", "Baz"})
	assert.True(t, mapping.IsZero())
}

func TestResolveMappingCoordinateHeaders(t *testing.T) {
	headers := []string{"Name", "Lat", "Lng"}
	idx := resolveMapping(headers, models.ColumnMapping{Name: "Name"})

	assert.Equal(t, 0, idx.name)
	assert.Equal(t, 1, idx.latitude)
	assert.Equal(t, 2, idx.longitude)
}

func TestResolveMappingMissingColumns(t *testing.T) {
	idx := resolveMapping([]string{"Name"}, models.ColumnMapping{Name: "Name", Address: "Address"})

	assert.Equal(t, 0, idx.name)
	assert.Equal(t, -1, idx.address)
	assert.Equal(t, -1, idx.latitude)
}
