package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(39.78, -89.65))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.True(t, ValidCoordinates(90, -180))

	assert.False(t, ValidCoordinates(90.01, 0))
	assert.False(t, ValidCoordinates(-90.01, 0))
	assert.False(t, ValidCoordinates(0, 180.01))
	assert.False(t, ValidCoordinates(0, -180.01))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
	assert.False(t, ValidCoordinates(0, math.NaN()))
	assert.False(t, ValidCoordinates(math.Inf(1), 0))
}

func TestNormalizedStoreRecordHasCoordinates(t *testing.T) {
	lat, lng := 39.78, -89.65

	assert.False(t, (&NormalizedStoreRecord{}).HasCoordinates())
	assert.False(t, (&NormalizedStoreRecord{Latitude: &lat}).HasCoordinates())
	assert.True(t, (&NormalizedStoreRecord{Latitude: &lat, Longitude: &lng}).HasCoordinates())
}

func TestColumnMappingIsZero(t *testing.T) {
	assert.True(t, ColumnMapping{}.IsZero())
	assert.False(t, ColumnMapping{Name: "Name"}.IsZero())
}
