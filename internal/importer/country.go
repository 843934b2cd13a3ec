package importer

import (
	"regexp"
	"strings"

	"stores-service/internal/models"
)

// Country inference methods
const (
	MethodPostcodeFormat = "postcode_format"
	MethodFilename       = "filename"
	MethodDefault        = "default"
)

// Known postcode shapes per ISO country code. Several countries share the
// plain five-digit shape, so a shape only yields a high-confidence match
// when exactly one pattern fits the samples.
var postcodePatterns = []struct {
	country string
	re      *regexp.Regexp
}{
	{"GB", regexp.MustCompile(`^[A-Za-z]{1,2}\d[A-Za-z\d]?\s*\d[A-Za-z]{2}$`)},
	{"CA", regexp.MustCompile(`^[A-Za-z]\d[A-Za-z]\s*\d[A-Za-z]\d$`)},
	{"NL", regexp.MustCompile(`^\d{4}\s?[A-Za-z]{2}$`)},
	{"JP", regexp.MustCompile(`^\d{3}-\d{4}$`)},
	{"US", regexp.MustCompile(`^\d{5}(-\d{4})?$`)},
	{"DE", regexp.MustCompile(`^\d{5}$`)},
	{"FR", regexp.MustCompile(`^\d{5}$`)},
	{"AU", regexp.MustCompile(`^\d{4}$`)},
}

// Filename tokens recognized as countries
var filenameCountries = map[string]string{
	"us": "US", "usa": "US", "unitedstates": "US", "america": "US",
	"uk": "GB", "gb": "GB", "britain": "GB", "england": "GB",
	"germany": "DE", "deutschland": "DE", "de": "DE",
	"france": "FR", "fr": "FR",
	"spain": "ES", "es": "ES",
	"italy": "IT", "it": "IT",
	"netherlands": "NL", "nl": "NL", "holland": "NL",
	"canada": "CA", "ca": "CA",
	"mexico": "MX", "mx": "MX",
	"brazil": "BR", "br": "BR",
	"australia": "AU", "au": "AU",
	"japan": "JP", "jp": "JP",
	"china": "CN", "cn": "CN",
	"india": "IN",
	"singapore": "SG", "sg": "SG",
	"ireland": "IE", "ie": "IE",
	"poland": "PL", "pl": "PL",
	"austria": "AT", "at": "AT",
	"switzerland": "CH", "ch": "CH",
	"sweden": "SE", "se": "SE",
	"norway": "NO", "no": "NO",
	"denmark": "DK", "dk": "DK",
	"portugal": "PT", "pt": "PT",
}

var filenameTokenRe = regexp.MustCompile(`[a-z]+`)

// minPostcodeMatchRatio is the share of non-empty sample postcodes that
// must fit a pattern before it counts as a format match
const minPostcodeMatchRatio = 0.8

// InferCountry guesses the country of a batch that has no usable country
// column. Confidence ordering, highest wins: postcode-format match (high),
// filename token match (medium), configured fallback (low). The caller
// decides whether low confidence blocks the import.
func InferCountry(headers []string, filename string, sampleRows [][]string, mapping models.ColumnMapping, fallback string) models.CountryInference {
	if country, ok := inferFromPostcodes(headers, sampleRows, mapping); ok {
		return models.CountryInference{Country: country, Confidence: models.ConfidenceHigh, Method: MethodPostcodeFormat}
	}
	if country, ok := inferFromFilename(filename); ok {
		return models.CountryInference{Country: country, Confidence: models.ConfidenceMedium, Method: MethodFilename}
	}
	return models.CountryInference{Country: fallback, Confidence: models.ConfidenceLow, Method: MethodDefault}
}

func inferFromPostcodes(headers []string, sampleRows [][]string, mapping models.ColumnMapping) (string, bool) {
	idx := resolveMapping(headers, mapping)
	if idx.postcode < 0 {
		return "", false
	}

	var samples []string
	for _, row := range sampleRows {
		if pc := cell(row, idx.postcode); pc != "" {
			samples = append(samples, pc)
		}
	}
	if len(samples) == 0 {
		return "", false
	}

	threshold := int(float64(len(samples)) * minPostcodeMatchRatio)
	if threshold == 0 {
		threshold = 1
	}

	var matched []string
	for _, p := range postcodePatterns {
		hits := 0
		for _, pc := range samples {
			if p.re.MatchString(pc) {
				hits++
			}
		}
		if hits >= threshold {
			matched = append(matched, p.country)
		}
	}

	// Ambiguous shapes (e.g. the five-digit zip) match several countries;
	// only a unique match is trustworthy
	if len(matched) == 1 {
		return matched[0], true
	}
	return "", false
}

func inferFromFilename(filename string) (string, bool) {
	for _, token := range filenameTokenRe.FindAllString(strings.ToLower(filename), -1) {
		if token == "csv" || token == "xlsx" || token == "xls" {
			continue
		}
		if country, ok := filenameCountries[token]; ok {
			return country, true
		}
	}
	return "", false
}
