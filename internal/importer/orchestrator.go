package importer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stores-service/internal/models"
	"stores-service/internal/session"
)

// Phase identifies where an ingestion run currently is. Transitions are
// strictly forward; Failed is terminal and reachable from every phase.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseParsed       Phase = "parsed"
	PhaseValidated    Phase = "validated"
	PhaseDeduplicated Phase = "deduplicated"
	PhaseGeocoded     Phase = "geocoded"
	PhasePersisted    Phase = "persisted"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// sampleRowCount is how many rows the upload preview returns
const sampleRowCount = 5

// StoreWriter is the persistence surface the orchestrator needs. Satisfied
// by the stores repository; narrowed to an interface so runs are testable
// without a database.
type StoreWriter interface {
	BulkUpsertStores(ctx context.Context, tenantID, userID string, records []models.NormalizedStoreRecord) (*models.ImportSummary, []models.ImportRowError, error)
	CountGeocodedByNames(ctx context.Context, tenantID string, names []string) (int64, error)
}

// BatchGeocoder resolves a batch of addresses, returning results in input
// order. Satisfied by the geocoding batcher.
type BatchGeocoder interface {
	BatchGeocode(ctx context.Context, requests []models.GeocodeRequest) []models.GeocodeResult
}

// OrchestratorConfig tunes an orchestrator
type OrchestratorConfig struct {
	DefaultCountry string // fallback for country inference, may be empty
}

// Orchestrator drives the two-phase import flow: Upload parses a file into
// a session, Ingest runs the session through validation, deduplication,
// geocoding and persistence.
type Orchestrator struct {
	parser         *Parser
	sessions       *session.Store
	writer         StoreWriter
	geocoder       BatchGeocoder
	defaultCountry string
	logger         *logrus.Entry
}

func NewOrchestrator(parser *Parser, sessions *session.Store, writer StoreWriter, geocoder BatchGeocoder, cfg OrchestratorConfig, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{
		parser:         parser,
		sessions:       sessions,
		writer:         writer,
		geocoder:       geocoder,
		defaultCountry: cfg.DefaultCountry,
		logger:         logger.WithField("component", "import-orchestrator"),
	}
}

// Upload parses an uploaded file, stores the parsed rows in a new session
// and returns a preview with a suggested column mapping and an inferred
// country. Nothing is persisted; the session id must be passed to Ingest.
func (o *Orchestrator) Upload(fileBytes []byte, filename string) (*models.UploadResponse, error) {
	parsed, err := o.parser.Parse(fileBytes, filename)
	if err != nil {
		return nil, err
	}

	sess := &session.UploadSession{
		ID:       uuid.New().String(),
		Filename: filename,
		Headers:  parsed.Headers,
		Rows:     parsed.Rows,
	}
	o.sessions.Put(sess)

	mapping := SuggestMapping(parsed.Headers)
	samples := sampleRows(parsed.Rows)
	inference := InferCountry(parsed.Headers, filename, samples, mapping, o.defaultCountry)

	o.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"filename":   filename,
		"rows":       parsed.TotalRows,
		"phase":      PhaseParsed,
	}).Info("Upload parsed")

	return &models.UploadResponse{
		SessionID:        sess.ID,
		Headers:          parsed.Headers,
		SampleRows:       samples,
		SuggestedMapping: mapping,
		TotalRows:        parsed.TotalRows,
		InferredCountry:  &inference,
	}, nil
}

// Ingest runs a previously uploaded session through the pipeline. Row-level
// problems degrade individual rows and are reported in the result; only
// session, schema and persistence problems fail the run. The session is
// consumed on success and kept for retry on failure.
func (o *Orchestrator) Ingest(ctx context.Context, tenantID, userID string, req *models.IngestRequest) (*models.IngestResult, error) {
	o.sessions.EvictExpired()

	runStart := time.Now()
	log := o.logger.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"tenant_id":  tenantID,
	})

	sess, ok := o.sessions.Acquire(req.SessionID)
	if !ok {
		return nil, &ValidationError{Reason: "upload session not found or expired, re-upload the file"}
	}
	defer o.sessions.Release(req.SessionID)

	result := &models.IngestResult{
		TotalRows:      len(sess.Rows),
		PhaseTimingsMs: make(map[string]int64),
	}

	mapping := req.Mapping
	if mapping.IsZero() {
		mapping = SuggestMapping(sess.Headers)
	}

	country, err := o.resolveCountry(sess, mapping, req.Country, result)
	if err != nil {
		return nil, err
	}

	// Validate and normalize
	phaseStart := time.Now()
	records, err := o.validateAndNormalize(sess, mapping, country, result)
	result.PhaseTimingsMs[string(PhaseValidated)] = time.Since(phaseStart).Milliseconds()
	if err != nil {
		log.WithError(err).WithField("phase", PhaseFailed).Warn("Ingest failed during validation")
		return nil, err
	}
	log.WithFields(logrus.Fields{"phase": PhaseValidated, "valid_rows": result.ValidRows, "invalid_rows": result.InvalidRows}).Info("Rows validated")

	// Duplicate detection, advisory only
	phaseStart = time.Now()
	result.Duplicates = DetectDuplicates(records)
	result.PhaseTimingsMs[string(PhaseDeduplicated)] = time.Since(phaseStart).Milliseconds()
	log.WithFields(logrus.Fields{"phase": PhaseDeduplicated, "duplicates": len(result.Duplicates)}).Info("Duplicates detected")

	// Geocode rows without coordinates
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	phaseStart = time.Now()
	o.geocodeMissing(ctx, records, result)
	result.PhaseTimingsMs[string(PhaseGeocoded)] = time.Since(phaseStart).Milliseconds()
	log.WithFields(logrus.Fields{"phase": PhaseGeocoded, "geocoded": result.GeocodedCount}).Info("Geocoding finished")

	// Persist
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	phaseStart = time.Now()
	summary, rowErrors, err := o.writer.BulkUpsertStores(ctx, tenantID, userID, records)
	result.PhaseTimingsMs[string(PhasePersisted)] = time.Since(phaseStart).Milliseconds()
	if summary != nil {
		result.Summary = *summary
	}
	result.RowErrors = append(result.RowErrors, rowErrors...)
	if err != nil {
		log.WithError(err).WithField("phase", PhaseFailed).Error("Ingest failed during persistence")
		if ctx.Err() != nil {
			return result, err
		}
		return result, &DatabaseError{Err: err}
	}

	// Post-import verification read, advisory
	if verified, verr := o.writer.CountGeocodedByNames(ctx, tenantID, geocodedNames(records)); verr == nil {
		result.VerifiedGeocoded = verified
	} else {
		log.WithError(verr).Warn("Geocode verification read failed")
	}

	o.sessions.Delete(req.SessionID)

	result.Success = true
	result.ProcessingMs = time.Since(runStart).Milliseconds()
	log.WithFields(logrus.Fields{
		"phase":    PhaseCompleted,
		"inserted": result.Summary.Inserted,
		"updated":  result.Summary.Updated,
		"failed":   result.Summary.Failed,
		"took_ms":  result.ProcessingMs,
	}).Info("Ingest completed")

	return result, nil
}

// resolveCountry picks the batch fallback country. An explicit request
// country always wins; otherwise inference runs and a low-confidence guess
// without a mapped country column blocks the run, because every blank row
// would silently get an arbitrary country.
func (o *Orchestrator) resolveCountry(sess *session.UploadSession, mapping models.ColumnMapping, requested string, result *models.IngestResult) (string, error) {
	if requested != "" {
		result.InferredCountry = CanonicalCountry(requested)
		return requested, nil
	}

	inference := InferCountry(sess.Headers, sess.Filename, sampleRows(sess.Rows), mapping, o.defaultCountry)
	result.InferredCountry = CanonicalCountry(inference.Country)

	hasCountryColumn := resolveMapping(sess.Headers, mapping).country >= 0
	if !hasCountryColumn && inference.Confidence == models.ConfidenceLow && o.defaultCountry == "" {
		return "", &ValidationError{Reason: "could not determine the country for this file, supply one in the ingest request"}
	}
	return inference.Country, nil
}

func (o *Orchestrator) validateAndNormalize(sess *session.UploadSession, mapping models.ColumnMapping, country string, result *models.IngestResult) ([]models.NormalizedStoreRecord, error) {
	records := make([]models.NormalizedStoreRecord, 0, len(sess.Rows))
	firstRowError := ""

	for i, row := range sess.Rows {
		validation := ValidateRow(row, sess.Headers, mapping)
		if !validation.IsValid {
			result.InvalidRows++
			message := strings.Join(validation.Errors, "; ")
			if firstRowError == "" {
				firstRowError = message
			}
			result.RowErrors = append(result.RowErrors, models.ImportRowError{
				Row:     i,
				Code:    "VALIDATION_FAILED",
				Message: message,
			})
			continue
		}
		result.ValidRows++
		records = append(records, NormalizeRow(row, sess.Headers, mapping, country))
	}

	if len(records) == 0 {
		return nil, &ValidationError{Reason: "no valid rows to import", FirstRowError: firstRowError}
	}
	return records, nil
}

// geocodeMissing resolves coordinates for records lacking them. Failures
// leave the record without coordinates; the upserter then counts it toward
// pendingGeocode.
func (o *Orchestrator) geocodeMissing(ctx context.Context, records []models.NormalizedStoreRecord, result *models.IngestResult) {
	var indexes []int
	var requests []models.GeocodeRequest
	for i := range records {
		if records[i].HasCoordinates() {
			continue
		}
		indexes = append(indexes, i)
		requests = append(requests, models.GeocodeRequest{
			Address:  records[i].Address,
			City:     records[i].City,
			Postcode: records[i].Postcode,
			Country:  records[i].Country,
		})
	}
	if len(requests) == 0 {
		return
	}

	results := o.geocoder.BatchGeocode(ctx, requests)
	for n, res := range results {
		if res.Status != models.GeocodeStatusSuccess {
			continue
		}
		record := &records[indexes[n]]
		record.Latitude = res.Latitude
		record.Longitude = res.Longitude
		result.GeocodedCount++
	}
}

// geocodedNames collects the names of records carrying coordinates, for the
// post-import verification count
func geocodedNames(records []models.NormalizedStoreRecord) []string {
	names := make([]string, 0, len(records))
	for i := range records {
		if records[i].HasCoordinates() {
			names = append(names, records[i].Name)
		}
	}
	return names
}

// sampleRows returns up to sampleRowCount rows for previews and inference
func sampleRows(rows [][]string) [][]string {
	if len(rows) <= sampleRowCount {
		return rows
	}
	return rows[:sampleRowCount]
}
