// Package geocoding provides the client-side batching, retry and
// reconciliation contract around an address-geocoding provider.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stores-service/internal/models"
)

// Geocoder resolves a single address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, req models.GeocodeRequest) (*models.GeocodeResult, error)
}

// NominatimClient talks to a Nominatim-compatible geocoding API
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// nominatimPlace is the subset of the provider response we consume
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimClient creates a geocoding client for the given provider
// base URL, defaulting to the public Nominatim API
func NewNominatimClient(baseURL string) *NominatimClient {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}

	return &NominatimClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "stores-service/1.0",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Geocode resolves one address. A provider response with no match is an
// error; the batcher turns errors into per-row failed results.
func (c *NominatimClient) Geocode(ctx context.Context, geoReq models.GeocodeRequest) (*models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("street", geoReq.Address)
	if geoReq.City != "" {
		params.Set("city", geoReq.City)
	}
	if geoReq.Postcode != "" {
		params.Set("postalcode", geoReq.Postcode)
	}
	if geoReq.Country != "" {
		params.Set("country", geoReq.Country)
	}

	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("geocoder rate limited: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("no match for address %q", geoReq.Address)
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return nil, fmt.Errorf("geocoder returned non-numeric coordinates %q,%q", places[0].Lat, places[0].Lon)
	}

	return &models.GeocodeResult{
		Status:    models.GeocodeStatusSuccess,
		Latitude:  &lat,
		Longitude: &lng,
		Provider:  "nominatim",
	}, nil
}
