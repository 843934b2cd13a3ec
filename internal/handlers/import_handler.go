package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"stores-service/internal/events"
	"stores-service/internal/importer"
	"stores-service/internal/models"
)

type ImportHandler struct {
	orchestrator  *importer.Orchestrator
	publisher     *events.Publisher
	maxFileSizeMB int
}

func NewImportHandler(orchestrator *importer.Orchestrator, publisher *events.Publisher, maxFileSizeMB int) *ImportHandler {
	return &ImportHandler{
		orchestrator:  orchestrator,
		publisher:     publisher,
		maxFileSizeMB: maxFileSizeMB,
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/stores/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.StoreImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=stores_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Stores"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Add Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Store Import Instructions")

	f.SetCellValue("Instructions", "A3", "SMART IMPORT FEATURE:")
	f.SetCellValue("Instructions", "A4", "Column headers do not need to match exactly: the upload step suggests a mapping you can adjust before ingesting.")
	f.SetCellValue("Instructions", "A5", "- Leave latitude/longitude blank and the system geocodes the address automatically.")
	f.SetCellValue("Instructions", "A6", "- Leave country blank and the system infers it from postcodes or the filename.")
	f.SetCellValue("Instructions", "A7", "- Provide externalId for reliable duplicate detection across re-imports.")

	f.SetCellValue("Instructions", "A9", "Column Definitions:")
	f.SetCellValue("Instructions", "A10", "Column")
	f.SetCellValue("Instructions", "B10", "Description")
	f.SetCellValue("Instructions", "C10", "Required")
	f.SetCellValue("Instructions", "D10", "Type")
	f.SetCellValue("Instructions", "E10", "Example")

	for i, col := range template.Columns {
		row := i + 11
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=stores_import_template.xlsx")

	f.Write(c.Writer)
}

// UploadStores parses an uploaded CSV or Excel file into an upload session
// and returns a preview with the suggested column mapping
// POST /api/v1/stores/import/upload
func (h *ImportHandler) UploadStores(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	maxBytes := int64(h.maxFileSizeMB) * 1024 * 1024
	if header.Size > maxBytes {
		h.respondImportError(c, h.oversizeError())
		return
	}

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "READ_FAILED",
				Message: "Failed to read uploaded file",
			},
		})
		return
	}
	if int64(len(fileBytes)) > maxBytes {
		h.respondImportError(c, h.oversizeError())
		return
	}

	response, err := h.orchestrator.Upload(fileBytes, header.Filename)
	if err != nil {
		h.respondImportError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

// IngestStores runs a previously uploaded session through validation,
// deduplication, geocoding and persistence
// POST /api/v1/stores/import/ingest
func (h *ImportHandler) IngestStores(c *gin.Context) {
	tenantID, _ := c.Get("tenant_id")
	userID, _ := c.Get("user_id")
	startTime := time.Now()

	var req models.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	userIDStr := ""
	if userID != nil {
		userIDStr = userID.(string)
	}

	result, err := h.orchestrator.Ingest(c.Request.Context(), tenantID.(string), userIDStr, &req)
	if err != nil {
		h.respondImportError(c, err)
		return
	}

	result.ProcessingMs = time.Since(startTime).Milliseconds()

	h.publisher.PublishImportCompleted(tenantID.(string), userIDStr, result.Summary)

	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) oversizeError() *importer.UploadError {
	return &importer.UploadError{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("File exceeds the %dMB limit", h.maxFileSizeMB),
	}
}

// respondImportError maps pipeline error types onto HTTP responses
func (h *ImportHandler) respondImportError(c *gin.Context, err error) {
	var parseErr *importer.FileParsingError
	var tooMany *importer.TooManyRowsError
	var validationErr *importer.ValidationError
	var uploadErr *importer.UploadError
	var dbErr *importer.DatabaseError

	switch {
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PARSE_ERROR", Message: parseErr.Error()},
		})
	case errors.As(err, &tooMany):
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "TOO_MANY_ROWS", Message: tooMany.Error()},
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "VALIDATION_FAILED", Message: validationErr.Error()},
		})
	case errors.As(err, &uploadErr):
		status := http.StatusBadRequest
		if uploadErr.Code == "FILE_TOO_LARGE" {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: uploadErr.Code, Message: uploadErr.Message},
		})
	case errors.As(err, &dbErr):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "DATABASE_ERROR", Message: dbErr.Error()},
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "IMPORT_FAILED", Message: err.Error()},
		})
	}
}
