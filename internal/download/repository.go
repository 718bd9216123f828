package download

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAlreadyExists is returned by Create when (download_client_id,
// external_id) already has a row.
var ErrAlreadyExists = errors.New("tracked download already exists")

// ErrInvalidTransition is returned by UpdateState when the requested state
// change is not reachable from the download's current state.
var ErrInvalidTransition = errors.New("invalid state transition")

const selectColumns = `
	id, download_client_id, external_id, request_id, media_id, media_type,
	state, previous_state, state_changed_at, title, parsed_info,
	size, downloaded, progress, speed, eta, seeders,
	download_path, import_path, quality, custom_format_score,
	grabbed_at, completed_at, imported_at,
	warnings, errors, import_block_reason,
	ratio, seeding_time, can_remove,
	last_progress_at, last_progress_value,
	created_at, updated_at`

// Repository handles database operations for tracked downloads.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new download repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new tracked download and writes the initial
// (null -> td.State) event in the same transaction.
func (r *Repository) Create(td *TrackedDownload) error {
	parsedInfoJSON := marshalJSON(td.ParsedInfo)
	warningsJSON := marshalJSON(td.Warnings)
	errorsJSON := marshalJSON(td.Errors)

	now := time.Now()
	if td.StateChangedAt.IsZero() {
		td.StateChangedAt = now
	}
	if td.CreatedAt.IsZero() {
		td.CreatedAt = now
	}
	td.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO tracked_downloads (
			download_client_id, external_id, request_id, media_id, media_type,
			state, previous_state, state_changed_at, title, parsed_info,
			size, downloaded, progress, speed, eta, seeders,
			download_path, import_path, quality, custom_format_score,
			grabbed_at, completed_at, imported_at,
			warnings, errors, import_block_reason,
			ratio, seeding_time, can_remove,
			last_progress_at, last_progress_value,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		td.DownloadClientID, td.ExternalID, td.RequestID, td.MediaID, td.MediaType,
		td.State, nullString(string(td.PreviousState)), td.StateChangedAt, td.Title, parsedInfoJSON,
		td.Size, td.Downloaded, td.Progress, td.Speed, int64(td.ETA.Seconds()), td.Seeders,
		td.DownloadPath, td.ImportPath, td.Quality, td.CustomFormatScore,
		td.GrabbedAt, td.CompletedAt, td.ImportedAt,
		warningsJSON, errorsJSON, td.ImportBlockReason,
		td.Ratio, int64(td.SeedingTime.Seconds()), td.CanRemove,
		td.LastProgressAt, td.LastProgressValue,
		td.CreatedAt, td.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return ErrAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	td.ID = id

	if _, err := tx.Exec(`
		INSERT INTO download_events (download_id, from_state, to_state, reason, created_at)
		VALUES (?, NULL, ?, ?, ?)`,
		td.ID, td.State, "created", now,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a tracked download by ID.
func (r *Repository) GetByID(id int64) (*TrackedDownload, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM tracked_downloads WHERE id = ?`, id)
	return r.scanRow(row)
}

// GetByExternalID retrieves a tracked download by client and external ID.
func (r *Repository) GetByExternalID(clientID int64, externalID string) (*TrackedDownload, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM tracked_downloads WHERE download_client_id = ? AND external_id = ?`, clientID, externalID)
	return r.scanRow(row)
}

// GetActive retrieves all non-terminal downloads.
func (r *Repository) GetActive() ([]*TrackedDownload, error) {
	rows, err := r.db.Query(`SELECT ` + selectColumns + ` FROM tracked_downloads
		WHERE state NOT IN ('imported', 'ignored')
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

// GetByState retrieves downloads in a specific state.
func (r *Repository) GetByState(state DownloadState) ([]*TrackedDownload, error) {
	rows, err := r.db.Query(`SELECT `+selectColumns+` FROM tracked_downloads WHERE state = ?
		ORDER BY created_at DESC`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

// GetPendingImport retrieves downloads ready for import.
func (r *Repository) GetPendingImport() ([]*TrackedDownload, error) {
	rows, err := r.db.Query(`SELECT ` + selectColumns + ` FROM tracked_downloads
		WHERE state IN ('completed', 'import_pending')
		ORDER BY completed_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

// GetReadyForRemoval retrieves imported downloads that meet seeding criteria.
func (r *Repository) GetReadyForRemoval(config SeedingConfig) ([]*TrackedDownload, error) {
	minSeedSeconds := int64(config.MinSeedTime.Seconds())
	maxSeedSeconds := int64(config.MaxSeedTime.Seconds())

	rows, err := r.db.Query(`SELECT `+selectColumns+` FROM tracked_downloads
		WHERE state = 'imported'
		AND (seeding_time >= ? OR (ratio >= ? AND seeding_time >= ?))`,
		maxSeedSeconds, config.MinRatio, minSeedSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

// UpdateProgress updates progress metrics without touching state.
func (r *Repository) UpdateProgress(td *TrackedDownload) error {
	td.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE tracked_downloads SET
			size = ?, downloaded = ?, progress = ?, speed = ?, eta = ?, seeders = ?,
			ratio = ?, seeding_time = ?, can_remove = ?,
			last_progress_at = ?, last_progress_value = ?, updated_at = ?
		WHERE id = ?`,
		td.Size, td.Downloaded, td.Progress, td.Speed, int64(td.ETA.Seconds()), td.Seeders,
		td.Ratio, int64(td.SeedingTime.Seconds()), td.CanRemove,
		td.LastProgressAt, td.LastProgressValue, td.UpdatedAt,
		td.ID,
	)
	return err
}

// Update persists the full row (used after appending warnings/errors or
// recording an import path/quality).
func (r *Repository) Update(td *TrackedDownload) error {
	parsedInfoJSON := marshalJSON(td.ParsedInfo)
	warningsJSON := marshalJSON(td.Warnings)
	errorsJSON := marshalJSON(td.Errors)
	td.UpdatedAt = time.Now()

	_, err := r.db.Exec(`
		UPDATE tracked_downloads SET
			download_client_id = ?, external_id = ?, request_id = ?, media_id = ?, media_type = ?,
			state = ?, previous_state = ?, state_changed_at = ?, title = ?, parsed_info = ?,
			size = ?, downloaded = ?, progress = ?, speed = ?, eta = ?, seeders = ?,
			download_path = ?, import_path = ?, quality = ?, custom_format_score = ?,
			grabbed_at = ?, completed_at = ?, imported_at = ?,
			warnings = ?, errors = ?, import_block_reason = ?,
			ratio = ?, seeding_time = ?, can_remove = ?,
			last_progress_at = ?, last_progress_value = ?, updated_at = ?
		WHERE id = ?`,
		td.DownloadClientID, td.ExternalID, td.RequestID, td.MediaID, td.MediaType,
		td.State, nullString(string(td.PreviousState)), td.StateChangedAt, td.Title, parsedInfoJSON,
		td.Size, td.Downloaded, td.Progress, td.Speed, int64(td.ETA.Seconds()), td.Seeders,
		td.DownloadPath, td.ImportPath, td.Quality, td.CustomFormatScore,
		td.GrabbedAt, td.CompletedAt, td.ImportedAt,
		warningsJSON, errorsJSON, td.ImportBlockReason,
		td.Ratio, int64(td.SeedingTime.Seconds()), td.CanRemove,
		td.LastProgressAt, td.LastProgressValue, td.UpdatedAt,
		td.ID,
	)
	return err
}

// UpdateState validates and applies a state transition, writing one event
// and the new state atomically. Returns ErrInvalidTransition without
// writing anything if the transition is not allowed from td.State.
func (r *Repository) UpdateState(td *TrackedDownload, newState DownloadState, reason, details string) error {
	if !td.CanTransitionTo(newState) {
		return ErrInvalidTransition
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`
		INSERT INTO download_events (download_id, from_state, to_state, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		td.ID, td.State, newState, reason, details, time.Now()); err != nil {
		return err
	}

	now := time.Now()
	var completedAt, importedAt *time.Time
	if newState == StateCompleted {
		completedAt = &now
	}
	if newState == StateImported {
		importedAt = &now
	}

	setClauses := []string{"previous_state = ?", "state = ?", "state_changed_at = ?", "updated_at = ?"}
	args := []interface{}{td.State, newState, now, now}
	if completedAt != nil {
		setClauses = append(setClauses, "completed_at = ?")
		args = append(args, *completedAt)
	}
	if importedAt != nil {
		setClauses = append(setClauses, "imported_at = ?")
		args = append(args, *importedAt)
	}
	args = append(args, td.ID)

	query := fmt.Sprintf(`UPDATE tracked_downloads SET %s WHERE id = ?`, strings.Join(setClauses, ", "))
	if _, err = tx.Exec(query, args...); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	td.PreviousState = td.State
	td.State = newState
	td.StateChangedAt = now
	td.UpdatedAt = now
	if completedAt != nil {
		td.CompletedAt = completedAt
	}
	if importedAt != nil {
		td.ImportedAt = importedAt
	}
	return nil
}

// AppendWarning appends a warning message, persisting it immediately.
func (r *Repository) AppendWarning(td *TrackedDownload, msg string) error {
	td.AddWarning(msg)
	warningsJSON := marshalJSON(td.Warnings)
	_, err := r.db.Exec(`UPDATE tracked_downloads SET warnings = ?, updated_at = ? WHERE id = ?`, warningsJSON, time.Now(), td.ID)
	return err
}

// AppendError appends an error message, persisting it immediately.
func (r *Repository) AppendError(td *TrackedDownload, msg string) error {
	td.AddError(msg)
	errorsJSON := marshalJSON(td.Errors)
	_, err := r.db.Exec(`UPDATE tracked_downloads SET errors = ?, updated_at = ? WHERE id = ?`, errorsJSON, time.Now(), td.ID)
	return err
}

// Delete removes a tracked download.
func (r *Repository) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM tracked_downloads WHERE id = ?`, id)
	return err
}

// GetEvents retrieves events for a download, newest first.
func (r *Repository) GetEvents(downloadID int64) ([]*DownloadEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, download_id, from_state, to_state, reason, details, created_at
		FROM download_events WHERE download_id = ?
		ORDER BY created_at DESC`, downloadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*DownloadEvent
	for rows.Next() {
		e := &DownloadEvent{}
		var fromState sql.NullString
		if err := rows.Scan(&e.ID, &e.DownloadID, &fromState, &e.ToState, &e.Reason, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if fromState.Valid {
			e.FromState = DownloadState(fromState.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanInto(s rowScanner, td *TrackedDownload) error {
	var requestID, mediaID sql.NullInt64
	var mediaType, prevState, quality, downloadPath, importPath sql.NullString
	var stateChangedAt, grabbedAt, completedAt, importedAt, lastProgressAt sql.NullTime
	var parsedInfoJSON, warningsJSON, errorsJSON, importBlockReason sql.NullString
	var etaSeconds, seedingTimeSeconds int64
	var canRemove int

	err := s.Scan(
		&td.ID, &td.DownloadClientID, &td.ExternalID, &requestID, &mediaID, &mediaType,
		&td.State, &prevState, &stateChangedAt, &td.Title, &parsedInfoJSON,
		&td.Size, &td.Downloaded, &td.Progress, &td.Speed, &etaSeconds, &td.Seeders,
		&downloadPath, &importPath, &quality, &td.CustomFormatScore,
		&grabbedAt, &completedAt, &importedAt,
		&warningsJSON, &errorsJSON, &importBlockReason,
		&td.Ratio, &seedingTimeSeconds, &canRemove,
		&lastProgressAt, &td.LastProgressValue,
		&td.CreatedAt, &td.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if requestID.Valid {
		td.RequestID = &requestID.Int64
	}
	if mediaID.Valid {
		td.MediaID = &mediaID.Int64
	}
	if mediaType.Valid {
		td.MediaType = mediaType.String
	}
	if prevState.Valid {
		td.PreviousState = DownloadState(prevState.String)
	}
	if stateChangedAt.Valid {
		td.StateChangedAt = stateChangedAt.Time
	}
	if quality.Valid {
		td.Quality = quality.String
	}
	if downloadPath.Valid {
		td.DownloadPath = downloadPath.String
	}
	if importPath.Valid {
		td.ImportPath = importPath.String
	}
	if grabbedAt.Valid {
		td.GrabbedAt = grabbedAt.Time
	}
	if completedAt.Valid {
		td.CompletedAt = &completedAt.Time
	}
	if importedAt.Valid {
		td.ImportedAt = &importedAt.Time
	}
	if importBlockReason.Valid {
		td.ImportBlockReason = importBlockReason.String
	}
	if lastProgressAt.Valid {
		td.LastProgressAt = lastProgressAt.Time
	}

	td.ETA = time.Duration(etaSeconds) * time.Second
	td.SeedingTime = time.Duration(seedingTimeSeconds) * time.Second
	td.CanRemove = canRemove == 1

	if parsedInfoJSON.Valid && parsedInfoJSON.String != "" && parsedInfoJSON.String != "null" {
		unmarshalJSON(parsedInfoJSON.String, &td.ParsedInfo)
	}
	if warningsJSON.Valid && warningsJSON.String != "" {
		unmarshalJSON(warningsJSON.String, &td.Warnings)
	}
	if errorsJSON.Valid && errorsJSON.String != "" {
		unmarshalJSON(errorsJSON.String, &td.Errors)
	}

	return nil
}

func (r *Repository) scanRow(row *sql.Row) (*TrackedDownload, error) {
	td := &TrackedDownload{}
	if err := r.scanInto(row, td); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return td, nil
}

func (r *Repository) scanRows(rows *sql.Rows) ([]*TrackedDownload, error) {
	var downloads []*TrackedDownload
	for rows.Next() {
		td := &TrackedDownload{}
		if err := r.scanInto(rows, td); err != nil {
			return nil, err
		}
		downloads = append(downloads, td)
	}
	return downloads, rows.Err()
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
