package download

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/database"
	"github.com/reelforge/reelforge/internal/downloadclient"
)

// newTestMonitoringService builds a MonitoringService backed by a real
// sqlite-backed repository but no download clients; every method exercised
// below only touches the repo, never m.clients.
func newTestMonitoringService(t *testing.T) *MonitoringService {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &MonitoringService{
		repo:             NewRepository(db.DB()),
		log:              zerolog.Nop(),
		pollInterval:     time.Second,
		stalledThreshold: time.Hour,
		seedingConfig:    DefaultSeedingConfig(),
		callbacks:        make(chan func(), 8),
		stopCh:           make(chan struct{}),
	}
}

func TestMakeKey(t *testing.T) {
	m := &MonitoringService{}
	assert.Equal(t, "1:abc", m.makeKey(1, "abc"))
	assert.Equal(t, "42:some-hash", m.makeKey(42, "some-hash"))
}

func TestMapClientStatus(t *testing.T) {
	m := &MonitoringService{}

	tests := []struct {
		name   string
		status string
		td     *TrackedDownload
		want   DownloadState
	}{
		{"downloading maps to downloading", "downloading", &TrackedDownload{}, StateDownloading},
		{"active maps to downloading", "active", &TrackedDownload{}, StateDownloading},
		{"paused maps to paused", "paused", &TrackedDownload{}, StatePaused},
		{"stalled maps to stalled", "stalled", &TrackedDownload{}, StateStalled},
		{"error maps to failed", "error", &TrackedDownload{}, StateFailed},
		{"queued maps to queued", "queued", &TrackedDownload{}, StateQueued},
		{"completed maps to completed when not already past it", "completed", &TrackedDownload{State: StateDownloading}, StateCompleted},
		{"completed preserves importing state", "completed", &TrackedDownload{State: StateImporting}, StateImporting},
		{"seeding preserves imported state", "seeding", &TrackedDownload{State: StateImported}, StateImported},
		{"unknown status preserves current state", "weird", &TrackedDownload{State: StatePaused}, StatePaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.mapClientStatus(tt.status, tt.td))
		})
	}
}

func TestUpdateFromClient_ProgressChangeUpdatesBookkeepingWithoutStateChange(t *testing.T) {
	m := newTestMonitoringService(t)
	td := newTestDownload("progress-track")
	td.State = StateDownloading
	require.NoError(t, m.repo.Create(td))

	dl := downloadclient.Download{
		ID:       td.ExternalID,
		Size:     1000,
		Progress: 10,
		Speed:    500,
		Status:   "downloading",
	}

	m.updateFromClient(td, dl)

	assert.Equal(t, StateDownloading, td.State)
	assert.Equal(t, 10.0, td.Progress)
	assert.False(t, td.LastProgressAt.IsZero())
	assert.Equal(t, 10.0, td.LastProgressValue)
}

func TestUpdateFromClient_CompletionTransitionsThroughToImportPending(t *testing.T) {
	m := newTestMonitoringService(t)
	td := newTestDownload("completion-track")
	td.State = StateDownloading
	require.NoError(t, m.repo.Create(td))

	var readyCalled bool
	m.OnReadyForImport = func(*TrackedDownload) { readyCalled = true }

	dl := downloadclient.Download{
		ID:       td.ExternalID,
		Size:     1000,
		Progress: 100,
		Speed:    0,
		Status:   "completed",
		SavePath: "/downloads/movie",
	}

	m.updateFromClient(td, dl)
	assert.Equal(t, StateImportPending, td.State)

	// queueCallback sends onto a buffered channel; drain and run it to
	// observe whether OnReadyForImport was invoked.
	select {
	case fn := <-m.callbacks:
		fn()
	default:
	}
	assert.True(t, readyCalled)
}

func TestCheckStalled_FlagsZeroSpeedNoProgress(t *testing.T) {
	m := newTestMonitoringService(t)
	m.stalledThreshold = time.Minute

	td := newTestDownload("stall-candidate")
	td.State = StateDownloading
	td.Speed = 0
	td.Progress = 40
	td.LastProgressAt = time.Now().Add(-time.Hour)
	td.LastProgressValue = 40
	require.NoError(t, m.repo.Create(td))

	m.checkStalled()

	fetched, err := m.repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Equal(t, StateStalled, fetched.State)
}

func TestCheckStalled_LeavesActiveDownloadsAlone(t *testing.T) {
	m := newTestMonitoringService(t)
	m.stalledThreshold = time.Hour

	td := newTestDownload("active-candidate")
	td.State = StateDownloading
	td.Speed = 1024
	td.Progress = 40
	td.LastProgressAt = time.Now()
	require.NoError(t, m.repo.Create(td))

	m.checkStalled()

	fetched, err := m.repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDownloading, fetched.State)
}

func TestHandleMissingFromClient_FailsAfterGracePeriod(t *testing.T) {
	m := newTestMonitoringService(t)
	td := newTestDownload("disappeared")
	td.State = StateDownloading
	td.StateChangedAt = time.Now().Add(-disappearedGrace * 2)
	require.NoError(t, m.repo.Create(td))

	m.handleMissingFromClient(td)

	fetched, err := m.repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, fetched.State)
}

func TestHandleMissingFromClient_WithinGraceStaysActive(t *testing.T) {
	m := newTestMonitoringService(t)
	td := newTestDownload("recently-active")
	td.State = StateDownloading
	td.StateChangedAt = time.Now()
	require.NoError(t, m.repo.Create(td))

	m.handleMissingFromClient(td)

	fetched, err := m.repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDownloading, fetched.State)
}

func TestHandleNewDownload_CreatesTrackedRow(t *testing.T) {
	m := newTestMonitoringService(t)

	dl := downloadclient.Download{
		ClientID: 1,
		ID:       "new-ext-id",
		Name:     "Some.Show.S01E02.1080p.WEB-DL",
		Size:     2000,
		Progress: 0,
		Status:   "queued",
	}

	m.handleNewDownload(dl)

	fetched, err := m.repo.GetByExternalID(1, "new-ext-id")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "show", fetched.MediaType)
	assert.Equal(t, StateQueued, fetched.State)
}

func TestCheckReadyForRemoval_FlagsDownloadsMeetingSeedingCriteria(t *testing.T) {
	m := newTestMonitoringService(t)
	m.seedingConfig = SeedingConfig{MinRatio: 1.0, MinSeedTime: time.Hour, MaxSeedTime: 24 * time.Hour}

	td := newTestDownload("seed-candidate")
	require.NoError(t, m.repo.Create(td))
	require.NoError(t, m.repo.UpdateState(td, StateDownloading, "", ""))
	require.NoError(t, m.repo.UpdateState(td, StateCompleted, "", ""))
	require.NoError(t, m.repo.UpdateState(td, StateImportPending, "", ""))
	require.NoError(t, m.repo.UpdateState(td, StateImporting, "", ""))
	require.NoError(t, m.repo.UpdateState(td, StateImported, "", ""))

	td.Ratio = 2.0
	td.SeedingTime = 2 * time.Hour
	require.NoError(t, m.repo.Update(td))

	var removeCalled bool
	m.OnReadyToRemove = func(*TrackedDownload) { removeCalled = true }

	m.checkReadyForRemoval()

	select {
	case fn := <-m.callbacks:
		fn()
	default:
	}
	assert.True(t, removeCalled)
}
