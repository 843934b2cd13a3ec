package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stores-service/internal/models"
)

// Cache TTL constants
const (
	StoreCacheTTL = 5 * time.Minute
	StatsCacheTTL = 2 * time.Minute
)

// UpsertChunkSize is the number of records persisted per transaction.
// Chunking bounds the blast radius of a transaction failure and provides
// backpressure against the database.
const UpsertChunkSize = 50

// uniqueViolation is the PostgreSQL error code for constraint conflicts
const uniqueViolation = "23505"

type StoresRepository struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *logrus.Entry
}

func NewStoresRepository(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) *StoresRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &StoresRepository{
		db:     db,
		redis:  redisClient,
		logger: logger.WithField("component", "stores-repository"),
	}
}

// Store CRUD Operations

// CreateStore creates a new store
func (r *StoresRepository) CreateStore(tenantID string, store *models.Store) error {
	store.TenantID = tenantID
	store.CreatedAt = time.Now()
	store.UpdatedAt = time.Now()
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}

	err := r.db.Create(store).Error
	if err == nil {
		r.invalidateStatsCache(context.Background(), tenantID)
	}
	return err
}

// GetStoreByID retrieves a store by ID with caching
func (r *StoresRepository) GetStoreByID(tenantID string, storeID uuid.UUID) (*models.Store, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("stores:store:%s:%s", tenantID, storeID.String())

	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var store models.Store
			if err := json.Unmarshal([]byte(cached), &store); err == nil {
				return &store, nil
			}
		}
	}

	var store models.Store
	err := r.db.Where("id = ? AND tenant_id = ?", storeID, tenantID).First(&store).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(store); err == nil {
			r.redis.Set(ctx, cacheKey, data, StoreCacheTTL)
		}
	}

	return &store, nil
}

// GetStores retrieves stores with filtering and pagination
func (r *StoresRepository) GetStores(tenantID string, req *models.SearchStoresRequest) ([]models.Store, int64, error) {
	query := r.db.Model(&models.Store{}).Where("tenant_id = ?", tenantID)

	if req.Query != nil && *req.Query != "" {
		search := "%" + *req.Query + "%"
		query = query.Where("name ILIKE ? OR address ILIKE ? OR city ILIKE ?", search, search, search)
	}
	if req.Country != nil && *req.Country != "" {
		query = query.Where("country = ?", *req.Country)
	}
	if req.Region != nil && *req.Region != "" {
		query = query.Where("region = ?", *req.Region)
	}
	if len(req.Status) > 0 {
		query = query.Where("status IN ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stores []models.Store
	offset := (req.Page - 1) * req.Limit
	err := query.Order("name ASC").Offset(offset).Limit(req.Limit).Find(&stores).Error
	return stores, total, err
}

// UpdateStore updates a store
func (r *StoresRepository) UpdateStore(tenantID string, storeID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.Store{}).
		Where("id = ? AND tenant_id = ?", storeID, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateStoreCaches(context.Background(), tenantID, storeID)
	return nil
}

// DeleteStore soft-deletes a store
func (r *StoresRepository) DeleteStore(tenantID string, storeID uuid.UUID) error {
	result := r.db.Where("id = ? AND tenant_id = ?", storeID, tenantID).Delete(&models.Store{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateStoreCaches(context.Background(), tenantID, storeID)
	return nil
}

// GetStats aggregates store counts for a tenant with caching
func (r *StoresRepository) GetStats(tenantID string) (*models.StoreStats, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("stores:stats:%s", tenantID)

	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var stats models.StoreStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats := &models.StoreStats{
		ByStatus: make(map[string]int64),
		ByRegion: make(map[string]int64),
	}

	if err := r.db.Model(&models.Store{}).Where("tenant_id = ?", tenantID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var statusBuckets []bucket
	if err := r.db.Model(&models.Store{}).
		Select("status AS key, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("status").Scan(&statusBuckets).Error; err != nil {
		return nil, err
	}
	for _, b := range statusBuckets {
		stats.ByStatus[b.Key] = b.Count
	}

	var regionBuckets []bucket
	if err := r.db.Model(&models.Store{}).
		Select("region AS key, COUNT(*) AS count").
		Where("tenant_id = ? AND region IS NOT NULL", tenantID).
		Group("region").Scan(&regionBuckets).Error; err != nil {
		return nil, err
	}
	for _, b := range regionBuckets {
		stats.ByRegion[b.Key] = b.Count
	}

	if err := r.db.Model(&models.Store{}).
		Where("tenant_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", tenantID).
		Count(&stats.Geocoded).Error; err != nil {
		return nil, err
	}
	stats.Ungeocode = stats.Total - stats.Geocoded

	if r.redis != nil {
		if data, err := json.Marshal(stats); err == nil {
			r.redis.Set(ctx, cacheKey, data, StatsCacheTTL)
		}
	}

	return stats, nil
}

// Bulk ingestion

// BulkUpsertStores persists normalized records in fixed-size chunks, each
// chunk in its own transaction. Records are matched by the natural key
// (name, city, country): matches are updated, the rest inserted.
// Coordinates are written only when they pass the range check; otherwise
// null is written and the row counts toward pendingGeocode. Each record
// runs in its own savepoint inside the chunk transaction: a failed
// statement rolls back that record alone and is counted, leaving the rest
// of the chunk committable.
func (r *StoresRepository) BulkUpsertStores(ctx context.Context, tenantID, userID string, records []models.NormalizedStoreRecord) (*models.ImportSummary, []models.ImportRowError, error) {
	summary := &models.ImportSummary{}
	rowErrors := make([]models.ImportRowError, 0)

	for start := 0; start < len(records); start += UpsertChunkSize {
		end := start + UpsertChunkSize
		if end > len(records) {
			end = len(records)
		}

		if err := ctx.Err(); err != nil {
			return summary, rowErrors, err
		}

		chunk := records[start:end]
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i := range chunk {
				record := &chunk[i]
				var out rowOutcome
				// Nested Transaction issues SAVEPOINT / ROLLBACK TO,
				// so a failed row never leaves tx in an aborted state
				rowErr := tx.Transaction(func(rowTx *gorm.DB) error {
					var err error
					out, err = r.upsertOne(rowTx, tenantID, userID, record)
					return err
				})
				if rowErr != nil {
					r.recordRowFailure(start+i, record, rowErr, summary, &rowErrors)
					continue
				}
				if out.pendingGeocode {
					summary.PendingGeocode++
				}
				if out.inserted {
					summary.Inserted++
				} else {
					summary.Updated++
				}
			}
			return nil
		})
		if err != nil {
			// A failed commit is not attributable to one row; chunks
			// committed before this stay committed
			return summary, rowErrors, err
		}
	}

	r.invalidateStatsCache(ctx, tenantID)
	return summary, rowErrors, nil
}

// rowOutcome reports what upsertOne did with a record
type rowOutcome struct {
	inserted       bool
	pendingGeocode bool
}

// upsertOne persists a single record inside its row savepoint
func (r *StoresRepository) upsertOne(tx *gorm.DB, tenantID, userID string, record *models.NormalizedStoreRecord) (rowOutcome, error) {
	var out rowOutcome

	lat, lng := record.Latitude, record.Longitude
	if lat == nil || lng == nil || !models.ValidCoordinates(*lat, *lng) {
		lat, lng = nil, nil
		out.pendingGeocode = true
	}

	var existing models.Store
	err := tx.Where("tenant_id = ? AND name = ? AND city = ? AND country = ?",
		tenantID, record.Name, record.City, record.Country).First(&existing).Error

	switch {
	case err == nil:
		updates := map[string]interface{}{
			"address":     record.Address,
			"postcode":    optionalString(record.Postcode),
			"latitude":    lat,
			"longitude":   lng,
			"external_id": optionalString(record.ExternalID),
			"status":      storeStatus(record.Status),
			"owner_name":  optionalString(record.OwnerName),
			"region":      optionalString(record.Region),
			"updated_at":  time.Now(),
			"updated_by":  optionalString(userID),
		}
		if updateErr := tx.Model(&models.Store{}).
			Where("id = ? AND tenant_id = ?", existing.ID, tenantID).
			Updates(updates).Error; updateErr != nil {
			return out, updateErr
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		store := &models.Store{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Name:       record.Name,
			Address:    record.Address,
			City:       record.City,
			Postcode:   optionalString(record.Postcode),
			Country:    record.Country,
			Region:     regionPtr(record.Region),
			Latitude:   lat,
			Longitude:  lng,
			ExternalID: optionalString(record.ExternalID),
			Status:     storeStatus(record.Status),
			OwnerName:  optionalString(record.OwnerName),
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
			CreatedBy:  optionalString(userID),
			UpdatedBy:  optionalString(userID),
		}
		if createErr := tx.Create(store).Error; createErr != nil {
			return out, createErr
		}
		out.inserted = true

	default:
		return out, err
	}

	return out, nil
}

func (r *StoresRepository) recordRowFailure(index int, record *models.NormalizedStoreRecord, err error, summary *models.ImportSummary, rowErrors *[]models.ImportRowError) {
	summary.Failed++

	code := "PERSIST_FAILED"
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		code = "DUPLICATE_KEY"
	}

	r.logger.WithError(err).WithFields(logrus.Fields{
		"row":  index,
		"name": record.Name,
		"city": record.City,
	}).Warn("Failed to persist store row")

	*rowErrors = append(*rowErrors, models.ImportRowError{
		Row:     index,
		Code:    code,
		Message: err.Error(),
	})
}

// CountGeocodedByNames counts freshly written rows carrying non-null
// coordinates, for post-import verification reporting. Advisory only.
func (r *StoresRepository) CountGeocodedByNames(ctx context.Context, tenantID string, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).
		Where("tenant_id = ? AND name IN ? AND latitude IS NOT NULL AND longitude IS NOT NULL", tenantID, names).
		Count(&count).Error
	return count, err
}

// cache invalidation helpers

func (r *StoresRepository) invalidateStoreCaches(ctx context.Context, tenantID string, storeID uuid.UUID) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, fmt.Sprintf("stores:store:%s:%s", tenantID, storeID.String()))
	r.invalidateStatsCache(ctx, tenantID)
}

func (r *StoresRepository) invalidateStatsCache(ctx context.Context, tenantID string) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, fmt.Sprintf("stores:stats:%s", tenantID))
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func regionPtr(region string) *models.Region {
	if region == "" {
		return nil
	}
	r := models.Region(region)
	return &r
}

func storeStatus(status string) models.StoreStatus {
	if status == "" {
		return models.StoreStatusOpen
	}
	return models.StoreStatus(status)
}
