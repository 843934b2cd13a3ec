package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stores-service/internal/models"
)

var countryHeaders = []string{"name", "address", "postcode"}
var countryMapping = models.ColumnMapping{Name: "name", Address: "address", Postcode: "postcode"}

func TestInferCountryFromUKPostcodes(t *testing.T) {
	samples := [][]string{
		{"Acme", "1 High St", "SW1A 1AA"},
		{"Globex", "2 King's Rd", "EC1A 1BB"},
		{"Initech", "3 Queen St", "W1A 0AX"},
	}

	inference := InferCountry(countryHeaders, "stores.csv", samples, countryMapping, "US")

	assert.Equal(t, "GB", inference.Country)
	assert.Equal(t, models.ConfidenceHigh, inference.Confidence)
	assert.Equal(t, MethodPostcodeFormat, inference.Method)
}

func TestInferCountryFiveDigitPostcodesAreAmbiguous(t *testing.T) {
	// Five-digit codes fit US, DE and FR alike, so the postcode check must
	// not claim a country; the filename breaks the tie
	samples := [][]string{
		{"Acme", "Hauptstr. 1", "10115"},
		{"Globex", "Bahnhofstr. 2", "80331"},
	}

	inference := InferCountry(countryHeaders, "germany_stores.csv", samples, countryMapping, "US")

	assert.Equal(t, "DE", inference.Country)
	assert.Equal(t, models.ConfidenceMedium, inference.Confidence)
	assert.Equal(t, MethodFilename, inference.Method)
}

func TestInferCountryFromFilenameTokens(t *testing.T) {
	inference := InferCountry(countryHeaders, "uk-locations-2026.xlsx", nil, countryMapping, "US")

	assert.Equal(t, "GB", inference.Country)
	assert.Equal(t, models.ConfidenceMedium, inference.Confidence)
}

func TestInferCountryFilenameIgnoresExtensionTokens(t *testing.T) {
	// "csv" must not be treated as a country token
	inference := InferCountry(countryHeaders, "locations.csv", nil, countryMapping, "FR")

	assert.Equal(t, "FR", inference.Country)
	assert.Equal(t, models.ConfidenceLow, inference.Confidence)
	assert.Equal(t, MethodDefault, inference.Method)
}

func TestInferCountryFallback(t *testing.T) {
	inference := InferCountry(countryHeaders, "locations.csv", nil, countryMapping, "")

	assert.Equal(t, "", inference.Country)
	assert.Equal(t, models.ConfidenceLow, inference.Confidence)
}

func TestInferCountryPostcodesNeedMajorityMatch(t *testing.T) {
	// Only one of four samples looks Japanese, well under the match ratio
	samples := [][]string{
		{"A", "1 St", "100-0001"},
		{"B", "2 St", "foo"},
		{"C", "3 St", "bar"},
		{"D", "4 St", "baz"},
	}

	inference := InferCountry(countryHeaders, "stores.csv", samples, countryMapping, "US")

	assert.Equal(t, MethodDefault, inference.Method)
}

func TestInferCountryCanadianPostcodes(t *testing.T) {
	samples := [][]string{
		{"A", "1 Bay St", "M5J 2N8"},
		{"B", "2 Bay St", "K1A 0B1"},
	}

	inference := InferCountry(countryHeaders, "stores.csv", samples, countryMapping, "US")

	assert.Equal(t, "CA", inference.Country)
	assert.Equal(t, models.ConfidenceHigh, inference.Confidence)
}
