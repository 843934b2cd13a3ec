package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreStatus represents the operating status of a store location
type StoreStatus string

const (
	StoreStatusOpen    StoreStatus = "Open"
	StoreStatusClosed  StoreStatus = "Closed"
	StoreStatusPlanned StoreStatus = "Planned"
)

// Region represents the sales region a store belongs to, derived from its country
type Region string

const (
	RegionAMER Region = "AMER"
	RegionEMEA Region = "EMEA"
	RegionAPAC Region = "APAC"
)

// Store represents a physical store location
// Performance indexes: composite indexes on tenant_id with the natural key columns
// used by bulk upsert matching and the external id used by duplicate detection
type Store struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   string          `json:"tenantId" gorm:"not null;index:idx_stores_tenant_id;index:idx_stores_tenant_natural_key;index:idx_stores_tenant_external_id"`
	Name       string          `json:"name" gorm:"not null;index:idx_stores_tenant_natural_key"`
	Address    string          `json:"address" gorm:"not null"`
	City       string          `json:"city" gorm:"not null;index:idx_stores_tenant_natural_key"`
	Postcode   *string         `json:"postcode,omitempty"`
	Country    string          `json:"country" gorm:"not null;index:idx_stores_tenant_natural_key"`
	Region     *Region         `json:"region,omitempty" gorm:"index"`
	Latitude   *float64        `json:"latitude,omitempty"`
	Longitude  *float64        `json:"longitude,omitempty"`
	ExternalID *string         `json:"externalId,omitempty" gorm:"index:idx_stores_tenant_external_id"`
	Status     StoreStatus     `json:"status" gorm:"not null;default:'Open'"`
	OwnerName  *string         `json:"ownerName,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	DeletedAt  *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy  *string         `json:"createdBy,omitempty"`
	UpdatedBy  *string         `json:"updatedBy,omitempty"`
}

// CreateStoreRequest represents the request to create a store
type CreateStoreRequest struct {
	Name       string   `json:"name" binding:"required"`
	Address    string   `json:"address" binding:"required"`
	City       string   `json:"city" binding:"required"`
	Postcode   *string  `json:"postcode,omitempty"`
	Country    string   `json:"country" binding:"required"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	ExternalID *string  `json:"externalId,omitempty"`
	Status     *string  `json:"status,omitempty"`
	OwnerName  *string  `json:"ownerName,omitempty"`
}

// UpdateStoreRequest represents the request to update a store
type UpdateStoreRequest struct {
	Name       *string  `json:"name,omitempty"`
	Address    *string  `json:"address,omitempty"`
	City       *string  `json:"city,omitempty"`
	Postcode   *string  `json:"postcode,omitempty"`
	Country    *string  `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	ExternalID *string  `json:"externalId,omitempty"`
	Status     *string  `json:"status,omitempty"`
	OwnerName  *string  `json:"ownerName,omitempty"`
}

// SearchStoresRequest represents store listing filters
type SearchStoresRequest struct {
	Query   *string       `json:"query,omitempty"`
	Country *string       `json:"country,omitempty"`
	Region  *Region       `json:"region,omitempty"`
	Status  []StoreStatus `json:"status,omitempty"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// StoreResponse is the single-store API envelope
type StoreResponse struct {
	Success bool   `json:"success"`
	Data    *Store `json:"data,omitempty"`
}

// StoreListResponse is the store list API envelope
type StoreListResponse struct {
	Success    bool            `json:"success"`
	Data       []Store         `json:"data"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// StoreStats aggregates store counts for dashboards
type StoreStats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"byStatus"`
	ByRegion  map[string]int64 `json:"byRegion"`
	Geocoded  int64            `json:"geocoded"`
	Ungeocode int64            `json:"ungeocoded"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

// Error contains error details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ValidCoordinates reports whether a latitude/longitude pair is a usable
// coordinate: both finite and within WGS84 bounds. Used by the geocoding
// batcher and the bulk upserter so the same gate applies at both stages.
func ValidCoordinates(lat, lng float64) bool {
	if lat != lat || lng != lng { // NaN
		return false
	}
	if lat < -90 || lat > 90 {
		return false
	}
	if lng < -180 || lng > 180 {
		return false
	}
	return true
}
