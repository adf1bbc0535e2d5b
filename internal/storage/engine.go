package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/screentime/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Engine owns the durable usage document. It is the only component that
// writes to the backend.
type Engine struct {
	backend Backend
	clock   clockwork.Clock
	logger  zerolog.Logger
}

// NewEngine creates a storage engine on top of backend.
func NewEngine(backend Backend, clock clockwork.Clock, logger zerolog.Logger) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		backend: backend,
		clock:   clock,
		logger:  logger.With().Str("component", "storage").Logger(),
	}
}

// Load returns the stored document. Any read or decode failure yields a
// freshly synthesized default document instead of an error.
func (e *Engine) Load(ctx context.Context) *Document {
	doc, _ := e.LoadDocument(ctx)
	return doc
}

// LoadDocument is Load for writers. It always returns a usable document, but
// reports ErrUnavailable when the backend failed for a reason other than a
// missing document; the returned default must then not be written back.
// A corrupt document is not an error.
func (e *Engine) LoadDocument(ctx context.Context) (*Document, error) {
	data, err := e.backend.Read(ctx)
	metrics.StorageOperations.WithLabelValues("read", metrics.Result(err)).Inc()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.logger.Info().Msg("No usage document yet, using default data")
			return e.fallback(), nil
		}
		e.logger.Warn().Err(err).Msg("Failed to read usage document, using default data")
		return e.fallback(), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		e.logger.Warn().Err(err).Msg("Usage document is corrupt, using default data")
		return e.fallback(), nil
	}

	if doc.Days == nil {
		doc.Days = make(map[string]DayRecord)
	}
	if !doc.LastUpdated.IsZero() {
		doc.LastUpdated = doc.LastUpdated.Local()
	}

	return &doc, nil
}

func (e *Engine) fallback() *Document {
	metrics.DefaultDocumentFallbacks.Inc()
	return DefaultDocument(e.now())
}

// Save backs up the current document and replaces it with doc. Backup
// failures are logged and ignored; write failures are reported in the result.
func (e *Engine) Save(ctx context.Context, doc *Document) SaveResult {
	info := e.backend.Info()

	err := e.backend.Backup(ctx)
	metrics.StorageOperations.WithLabelValues("backup", metrics.Result(err)).Inc()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.logger.Debug().Msg("No existing document to back up (first save)")
		} else {
			e.logger.Warn().Err(err).Str("backup", info.BackupPath).Msg("Failed to back up usage document")
		}
	}

	data, err := encode(doc)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to encode usage document")
		return SaveResult{Success: false, Error: err.Error()}
	}

	err = e.backend.Write(ctx, data)
	metrics.StorageOperations.WithLabelValues("write", metrics.Result(err)).Inc()
	if err != nil {
		e.logger.Error().Err(err).Str("path", info.DataPath).Msg("Failed to save usage document")
		return SaveResult{Success: false, Error: err.Error()}
	}

	e.logger.Debug().
		Str("path", info.DataPath).
		Int("days", len(doc.Days)).
		Msg("Usage document saved")

	return SaveResult{Success: true, Path: info.DataPath}
}

func encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Day returns the record stored for key, or an empty record.
func (e *Engine) Day(ctx context.Context, key string) DayRecord {
	doc := e.Load(ctx)
	if rec, ok := doc.Days[key]; ok {
		return rec
	}
	return NewDayRecord(key, nil)
}

// SaveDay stores rec under key.
func (e *Engine) SaveDay(ctx context.Context, key string, rec DayRecord) SaveResult {
	doc, err := e.LoadDocument(ctx)
	if err != nil {
		return e.refuse(err)
	}
	doc.SetDay(key, rec, e.now())
	return e.Save(ctx, doc)
}

// Export returns the current document for export.
func (e *Engine) Export(ctx context.Context) ExportResult {
	return ExportResult{
		Success:   true,
		Data:      e.Load(ctx),
		Timestamp: e.now(),
	}
}

// Import validates raw and stores it as the new document. Payloads that are
// not JSON objects or lack "days" or "settings" are rejected before any write.
func (e *Engine) Import(ctx context.Context, raw []byte) (SaveResult, error) {
	doc, err := DecodeImport(raw)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Rejected import payload")
		return SaveResult{Success: false, Error: err.Error()}, err
	}

	result := e.Save(ctx, doc)
	if result.Success {
		e.logger.Info().Int("days", len(doc.Days)).Msg("Imported usage document")
	}
	return result, nil
}

// DecodeImport parses an import payload.
func DecodeImport(raw []byte) (*Document, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for _, required := range []string{"days", "settings"} {
		if v, ok := keys[required]; !ok || string(v) == "null" {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidImport, required)
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if doc.Days == nil {
		doc.Days = make(map[string]DayRecord)
	}
	if !doc.LastUpdated.IsZero() {
		doc.LastUpdated = doc.LastUpdated.Local()
	}

	return &doc, nil
}

// Settings returns the stored settings.
func (e *Engine) Settings(ctx context.Context) Settings {
	return e.Load(ctx).Settings
}

// SaveSettings merges patch into the stored settings.
func (e *Engine) SaveSettings(ctx context.Context, patch SettingsPatch) SaveResult {
	doc, err := e.LoadDocument(ctx)
	if err != nil {
		return e.refuse(err)
	}
	doc.Settings = patch.Apply(doc.Settings)
	doc.LastUpdated = e.now()
	return e.Save(ctx, doc)
}

// PruneBefore deletes every day strictly before cutoff. It is only ever
// invoked by an operator.
func (e *Engine) PruneBefore(ctx context.Context, cutoff string) (int, SaveResult) {
	doc, err := e.LoadDocument(ctx)
	if err != nil {
		return 0, e.refuse(err)
	}

	removed := 0
	for key := range doc.Days {
		if key < cutoff {
			delete(doc.Days, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, SaveResult{Success: true, Path: e.backend.Info().DataPath}
	}

	doc.LastUpdated = e.now()
	doc.RefreshStatistics()

	e.logger.Info().
		Int("days_deleted", removed).
		Str("cutoff_date", cutoff).
		Msg("Pruned usage history")

	return removed, e.Save(ctx, doc)
}

// refuse reports a write that was skipped because the current document
// could not be read
func (e *Engine) refuse(err error) SaveResult {
	metrics.StorageOperations.WithLabelValues("write", "refused").Inc()
	e.logger.Error().Err(err).Msg("Not writing over a document that could not be read")
	return SaveResult{Success: false, Path: e.backend.Info().DataPath, Error: err.Error()}
}

// Info describes the backend location.
func (e *Engine) Info() DataInfo {
	return e.backend.Info()
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// now is the clock reading without its monotonic part, so stamped
// documents compare equal to what is read back.
func (e *Engine) now() time.Time {
	return e.clock.Now().Round(0).Local()
}

// Close releases the backend.
func (e *Engine) Close() error {
	return e.backend.Close()
}
