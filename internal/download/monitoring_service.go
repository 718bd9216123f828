package download

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/downloadclient"
	"github.com/reelforge/reelforge/internal/parser"
)

// disappearedGrace is how long an active download may be absent from its
// client before it's marked failed.
const disappearedGrace = 10 * time.Minute

// callbackWorkers bounds the goroutine pool that runs OnReadyForImport and
// OnReadyToRemove callbacks so a slow import doesn't stall polling.
const callbackWorkers = 4

// MonitoringService polls download clients and drives the TrackedDownload FSM.
type MonitoringService struct {
	repo    *Repository
	clients *downloadclient.Manager
	log     zerolog.Logger

	pollInterval     time.Duration
	stalledThreshold time.Duration
	seedingConfig    SeedingConfig

	OnReadyForImport func(td *TrackedDownload)
	OnReadyToRemove  func(td *TrackedDownload)

	callbacks chan func()
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// MonitoringConfig holds monitoring configuration.
type MonitoringConfig struct {
	PollInterval     time.Duration
	StalledThreshold time.Duration
	SeedingConfig    SeedingConfig
}

// DefaultMonitoringConfig returns sensible defaults.
func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		PollInterval:     5 * time.Second,
		StalledThreshold: 6 * time.Hour,
		SeedingConfig:    DefaultSeedingConfig(),
	}
}

// NewMonitoringService creates a new monitoring service.
func NewMonitoringService(db *sql.DB, clients *downloadclient.Manager, config MonitoringConfig, logger zerolog.Logger) *MonitoringService {
	return &MonitoringService{
		repo:             NewRepository(db),
		clients:          clients,
		log:              logger,
		pollInterval:     config.PollInterval,
		stalledThreshold: config.StalledThreshold,
		seedingConfig:    config.SeedingConfig,
		callbacks:        make(chan func(), 64),
		stopCh:           make(chan struct{}),
	}
}

// Start begins the monitoring loop and the callback worker pool.
func (m *MonitoringService) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	for i := 0; i < callbackWorkers; i++ {
		m.wg.Add(1)
		go m.runCallbacks()
	}

	m.wg.Add(1)
	go m.pollLoop()

	m.log.Info().Msg("download monitoring service started")
}

// Stop stops the monitoring loop and drains the callback pool.
func (m *MonitoringService) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	m.log.Info().Msg("download monitoring service stopped")
}

func (m *MonitoringService) runCallbacks() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			// drain whatever is already queued, then exit
			for {
				select {
				case fn := <-m.callbacks:
					m.safeCall(fn)
				default:
					return
				}
			}
		case fn := <-m.callbacks:
			m.safeCall(fn)
		}
	}
}

func (m *MonitoringService) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("monitoring callback panicked")
		}
	}()
	fn()
}

func (m *MonitoringService) queueCallback(td *TrackedDownload, fn func(td *TrackedDownload)) {
	if fn == nil {
		return
	}
	select {
	case m.callbacks <- func() { fn(td) }:
	default:
		m.log.Warn().Int64("download_id", td.ID).Msg("callback queue full, running inline")
		m.safeCall(func() { fn(td) })
	}
}

// pollLoop runs the main monitoring loop.
func (m *MonitoringService) pollLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.poll()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

// poll checks all download clients and updates tracked downloads.
func (m *MonitoringService) poll() {
	clientDownloads, err := m.clients.GetAllDownloads()
	if err != nil {
		m.log.Error().Err(err).Msg("getting downloads from clients")
		return
	}

	clientMap := make(map[string]downloadclient.Download, len(clientDownloads))
	for _, dl := range clientDownloads {
		clientMap[m.makeKey(dl.ClientID, dl.ID)] = dl
	}

	tracked, err := m.repo.GetActive()
	if err != nil {
		m.log.Error().Err(err).Msg("getting tracked downloads")
		return
	}

	for _, td := range tracked {
		key := m.makeKey(td.DownloadClientID, td.ExternalID)
		if clientDL, ok := clientMap[key]; ok {
			m.updateFromClient(td, clientDL)
			delete(clientMap, key)
		} else {
			m.handleMissingFromClient(td)
		}
	}

	for _, dl := range clientMap {
		m.handleNewDownload(dl)
	}

	m.checkStalled()
	m.checkReadyForRemoval()
}

// makeKey creates a unique key for client+external ID.
func (m *MonitoringService) makeKey(clientID int64, externalID string) string {
	return strconv.FormatInt(clientID, 10) + ":" + externalID
}

// updateFromClient updates a tracked download from client state and records
// progress-change bookkeeping used by checkStalled.
func (m *MonitoringService) updateFromClient(td *TrackedDownload, dl downloadclient.Download) {
	td.Size = dl.Size
	td.Downloaded = int64(float64(dl.Size) * dl.Progress / 100)
	td.Speed = dl.Speed
	td.Ratio = dl.Ratio
	td.Seeders = dl.Seeders
	if td.CompletedAt != nil {
		td.SeedingTime = time.Since(*td.CompletedAt)
	}

	if dl.Progress != td.Progress || td.LastProgressAt.IsZero() {
		td.LastProgressAt = time.Now()
		td.LastProgressValue = dl.Progress
	}
	td.Progress = dl.Progress

	newState := m.mapClientStatus(dl.Status, td)

	if newState != td.State && td.CanTransitionTo(newState) {
		reason := "client_status"
		details := "client reported status " + dl.Status
		if err := m.repo.UpdateState(td, newState, reason, details); err != nil {
			m.log.Error().Err(err).Int64("download_id", td.ID).Msg("updating download state")
			return
		}

		if newState == StateCompleted {
			td.DownloadPath = dl.SavePath
			if err := m.repo.Update(td); err != nil {
				m.log.Error().Err(err).Msg("persisting download path")
			}
			if td.CanTransitionTo(StateImportPending) {
				if err := m.repo.UpdateState(td, StateImportPending, "download_completed", ""); err == nil {
					m.queueCallback(td, m.OnReadyForImport)
				}
			}
		}
		return
	}

	if err := m.repo.UpdateProgress(td); err != nil {
		m.log.Error().Err(err).Int64("download_id", td.ID).Msg("updating download progress")
	}
}

// mapClientStatus maps download client status to our state.
func (m *MonitoringService) mapClientStatus(status string, td *TrackedDownload) DownloadState {
	switch strings.ToLower(status) {
	case "downloading", "active":
		return StateDownloading
	case "completed", "seeding":
		if td.State == StateImportPending || td.State == StateImporting ||
			td.State == StateImported || td.State == StateImportBlocked {
			return td.State
		}
		return StateCompleted
	case "paused":
		return StatePaused
	case "stalled":
		return StateStalled
	case "error", "failed":
		return StateFailed
	case "queued", "waiting":
		return StateQueued
	default:
		return td.State
	}
}

// handleMissingFromClient handles when a download disappears from the client.
func (m *MonitoringService) handleMissingFromClient(td *TrackedDownload) {
	if td.State == StateImported {
		return
	}
	if td.IsActive() && time.Since(td.StateChangedAt) > disappearedGrace {
		m.log.Warn().Str("title", td.Title).Msg("download disappeared from client")
		if err := m.repo.UpdateState(td, StateFailed, "disappeared_from_client", ""); err != nil {
			m.log.Error().Err(err).Msg("marking disappeared download failed")
		}
	}
}

// handleNewDownload processes a download found in client that we're not tracking.
func (m *MonitoringService) handleNewDownload(dl downloadclient.Download) {
	existing, err := m.repo.GetByExternalID(dl.ClientID, dl.ID)
	if err != nil {
		m.log.Error().Err(err).Msg("checking for existing download")
		return
	}
	if existing != nil {
		return
	}

	parsed := parser.Parse(dl.Name)

	td := &TrackedDownload{
		DownloadClientID:  dl.ClientID,
		ExternalID:        dl.ID,
		Title:             dl.Name,
		ParsedInfo:        parsed,
		State:             StateQueued,
		StateChangedAt:    time.Now(),
		Size:              dl.Size,
		Progress:          dl.Progress,
		LastProgressAt:    time.Now(),
		LastProgressValue: dl.Progress,
		DownloadPath:      dl.SavePath,
		GrabbedAt:         time.Now(),
	}

	if parsed.Season > 0 || parsed.Episode > 0 {
		td.MediaType = "show"
	} else {
		td.MediaType = "movie"
	}

	td.State = m.mapClientStatus(dl.Status, td)

	if err := m.repo.Create(td); err != nil {
		m.log.Error().Err(err).Str("title", dl.Name).Msg("creating tracked download")
		return
	}

	m.log.Info().Str("title", td.Title).Str("state", string(td.State)).Msg("now tracking download")

	if td.State == StateCompleted && td.CanTransitionTo(StateImportPending) {
		if err := m.repo.UpdateState(td, StateImportPending, "download_already_completed", ""); err == nil {
			m.queueCallback(td, m.OnReadyForImport)
		}
	}
}

// checkStalled transitions downloads whose speed is zero and whose progress
// has not moved for longer than stalledThreshold.
func (m *MonitoringService) checkStalled() {
	downloading, err := m.repo.GetByState(StateDownloading)
	if err != nil {
		return
	}

	now := time.Now()
	for _, td := range downloading {
		if td.Speed != 0 || td.Progress >= 100 {
			continue
		}
		sinceProgress := now.Sub(td.LastProgressAt)
		if td.LastProgressAt.IsZero() {
			sinceProgress = now.Sub(td.StateChangedAt)
		}
		if sinceProgress <= m.stalledThreshold {
			continue
		}
		if !td.CanTransitionTo(StateStalled) {
			continue
		}
		td.AddWarning("download stalled: no progress for " + m.stalledThreshold.String())
		if err := m.repo.Update(td); err != nil {
			m.log.Error().Err(err).Msg("persisting stall warning")
		}
		if err := m.repo.UpdateState(td, StateStalled, "stalled_no_progress", fmt.Sprintf("progress stuck at %.1f", td.Progress)); err != nil {
			m.log.Error().Err(err).Msg("marking download stalled")
			continue
		}
		m.log.Warn().Str("title", td.Title).Msg("download marked as stalled")
	}
}

// checkReadyForRemoval checks for imported downloads ready to be removed.
func (m *MonitoringService) checkReadyForRemoval() {
	ready, err := m.repo.GetReadyForRemoval(m.seedingConfig)
	if err != nil {
		return
	}

	for _, td := range ready {
		if td.CanRemove {
			continue
		}
		td.CanRemove = true
		if err := m.repo.Update(td); err != nil {
			m.log.Error().Err(err).Msg("persisting can-remove flag")
			continue
		}
		m.queueCallback(td, m.OnReadyToRemove)
	}
}

// TrackDownload manually adds a download to tracking (called after a grab).
func (m *MonitoringService) TrackDownload(clientID int64, externalID string, title string, mediaID *int64, mediaType string, requestID *int64) (*TrackedDownload, error) {
	existing, err := m.repo.GetByExternalID(clientID, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if mediaID != nil {
			existing.MediaID = mediaID
		}
		if mediaType != "" {
			existing.MediaType = mediaType
		}
		if requestID != nil {
			existing.RequestID = requestID
		}
		if err := m.repo.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	parsed := parser.Parse(title)

	td := &TrackedDownload{
		DownloadClientID: clientID,
		ExternalID:       externalID,
		RequestID:        requestID,
		MediaID:          mediaID,
		MediaType:        mediaType,
		Title:            title,
		ParsedInfo:       parsed,
		State:            StateQueued,
		StateChangedAt:   time.Now(),
		GrabbedAt:        time.Now(),
	}

	if err := m.repo.Create(td); err != nil {
		return nil, err
	}

	m.log.Info().Str("title", title).Msg("tracking new download")
	return td, nil
}

// GetTrackedDownload retrieves a tracked download by ID.
func (m *MonitoringService) GetTrackedDownload(id int64) (*TrackedDownload, error) {
	return m.repo.GetByID(id)
}

// GetActiveDownloads returns all non-terminal downloads.
func (m *MonitoringService) GetActiveDownloads() ([]*TrackedDownload, error) {
	return m.repo.GetActive()
}

// GetPendingImports returns downloads ready for import.
func (m *MonitoringService) GetPendingImports() ([]*TrackedDownload, error) {
	return m.repo.GetPendingImport()
}

// MarkImporting marks a download as currently importing.
func (m *MonitoringService) MarkImporting(td *TrackedDownload) error {
	if !td.CanTransitionTo(StateImporting) {
		return nil
	}
	return m.repo.UpdateState(td, StateImporting, "import_started", "")
}

// MarkImported marks a download as successfully imported.
func (m *MonitoringService) MarkImported(td *TrackedDownload, importPath string) error {
	td.ImportPath = importPath
	if err := m.repo.Update(td); err != nil {
		return err
	}
	return m.repo.UpdateState(td, StateImported, "import_completed", "")
}

// MarkImportBlocked marks a download as blocked with a reason.
func (m *MonitoringService) MarkImportBlocked(td *TrackedDownload, reason string) error {
	td.ImportBlockReason = reason
	if err := m.repo.Update(td); err != nil {
		return err
	}
	return m.repo.UpdateState(td, StateImportBlocked, reason, "")
}

// MarkFailed marks a download as failed.
func (m *MonitoringService) MarkFailed(td *TrackedDownload, errorMsg string) error {
	td.AddError(errorMsg)
	if err := m.repo.Update(td); err != nil {
		return err
	}
	return m.repo.UpdateState(td, StateFailed, errorMsg, "")
}

// RetryDownload attempts to retry a failed download.
func (m *MonitoringService) RetryDownload(td *TrackedDownload) error {
	if td.State != StateFailed {
		return nil
	}
	return m.repo.UpdateState(td, StateQueued, "retry_requested", "")
}

// IgnoreDownload marks a download as ignored.
func (m *MonitoringService) IgnoreDownload(td *TrackedDownload) error {
	return m.repo.UpdateState(td, StateIgnored, "manually_ignored", "")
}

// DeleteTrackedDownload removes a tracked download from the database.
func (m *MonitoringService) DeleteTrackedDownload(id int64) error {
	return m.repo.Delete(id)
}
