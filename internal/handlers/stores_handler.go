package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"stores-service/internal/events"
	"stores-service/internal/models"
	"stores-service/internal/repository"
)

type StoresHandler struct {
	repo            *repository.StoresRepository
	eventsPublisher *events.Publisher
	defaultPageSize int
	maxPageSize     int
}

func NewStoresHandler(repo *repository.StoresRepository, eventsPublisher *events.Publisher, defaultPageSize, maxPageSize int) *StoresHandler {
	return &StoresHandler{
		repo:            repo,
		eventsPublisher: eventsPublisher,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// CreateStore creates a new store
// POST /api/v1/stores
func (h *StoresHandler) CreateStore(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")
	userID, _ := c.Get("user_id")

	var req models.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if req.Latitude != nil && req.Longitude != nil && !models.ValidCoordinates(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Coordinates are out of range",
				Field:   "latitude",
			},
		})
		return
	}

	store := &models.Store{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		Postcode:   req.Postcode,
		Country:    req.Country,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		ExternalID: req.ExternalID,
		OwnerName:  req.OwnerName,
		Status:     models.StoreStatusOpen,
	}
	if req.Status != nil {
		store.Status = models.StoreStatus(*req.Status)
	}
	if userID != nil {
		id := userID.(string)
		store.CreatedBy = &id
		store.UpdatedBy = &id
	}

	if err := h.repo.CreateStore(tenantID.(string), store); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	h.eventsPublisher.PublishStoreCreated(store, tenantID.(string), actorID(userID))

	c.JSON(http.StatusCreated, models.StoreResponse{
		Success: true,
		Data:    store,
	})
}

// GetStores lists stores with filtering and pagination
// GET /api/v1/stores
func (h *StoresHandler) GetStores(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	req := &models.SearchStoresRequest{
		Page:  1,
		Limit: h.defaultPageSize,
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		req.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultPageSize))); err == nil && limit > 0 {
		if limit > h.maxPageSize {
			limit = h.maxPageSize
		}
		req.Limit = limit
	}
	if q := c.Query("q"); q != "" {
		req.Query = &q
	}
	if country := c.Query("country"); country != "" {
		req.Country = &country
	}
	if region := c.Query("region"); region != "" {
		r := models.Region(region)
		req.Region = &r
	}
	if status := c.Query("status"); status != "" {
		req.Status = []models.StoreStatus{models.StoreStatus(status)}
	}

	stores, total, err := h.repo.GetStores(tenantID.(string), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LIST_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	c.JSON(http.StatusOK, models.StoreListResponse{
		Success: true,
		Data:    stores,
		Pagination: &models.PaginationInfo{
			Page:        req.Page,
			Limit:       req.Limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     req.Page < totalPages,
			HasPrevious: req.Page > 1,
		},
	})
}

// GetStore retrieves a single store
// GET /api/v1/stores/:id
func (h *StoresHandler) GetStore(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Store ID must be a valid UUID",
			},
		})
		return
	}

	store, err := h.repo.GetStoreByID(tenantID.(string), storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Store not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "GET_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.StoreResponse{
		Success: true,
		Data:    store,
	})
}

// UpdateStore updates a store
// PUT /api/v1/stores/:id
func (h *StoresHandler) UpdateStore(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")
	userID, _ := c.Get("user_id")

	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Store ID must be a valid UUID",
			},
		})
		return
	}

	var req models.UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if req.Latitude != nil && req.Longitude != nil && !models.ValidCoordinates(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Coordinates are out of range",
				Field:   "latitude",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Postcode != nil {
		updates["postcode"] = *req.Postcode
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.ExternalID != nil {
		updates["external_id"] = *req.ExternalID
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.OwnerName != nil {
		updates["owner_name"] = *req.OwnerName
	}
	if userID != nil {
		updates["updated_by"] = userID.(string)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "No fields to update",
			},
		})
		return
	}

	if err := h.repo.UpdateStore(tenantID.(string), storeID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Store not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	store, err := h.repo.GetStoreByID(tenantID.(string), storeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "GET_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	h.eventsPublisher.PublishStoreUpdated(store, tenantID.(string), actorID(userID))

	c.JSON(http.StatusOK, models.StoreResponse{
		Success: true,
		Data:    store,
	})
}

// DeleteStore soft-deletes a store
// DELETE /api/v1/stores/:id
func (h *StoresHandler) DeleteStore(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")
	userID, _ := c.Get("user_id")

	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Store ID must be a valid UUID",
			},
		})
		return
	}

	if err := h.repo.DeleteStore(tenantID.(string), storeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Store not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	h.eventsPublisher.PublishStoreDeleted(storeID, tenantID.(string), actorID(userID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Store deleted",
	})
}

// GetStats returns aggregate store counts for the tenant
// GET /api/v1/stores/stats
func (h *StoresHandler) GetStats(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")

	stats, err := h.repo.GetStats(tenantID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "STATS_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

func actorID(userID interface{}) string {
	if userID == nil {
		return ""
	}
	if s, ok := userID.(string); ok {
		return s
	}
	return ""
}
