package download

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB())
}

func newTestDownload(externalID string) *TrackedDownload {
	return &TrackedDownload{
		DownloadClientID: 1,
		ExternalID:       externalID,
		MediaType:        "movie",
		State:            StateQueued,
		Title:            "Test.Movie.2024.1080p.WEB-DL",
	}
}

func TestRepository_CreateWritesInitialEvent(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("abc123")

	require.NoError(t, repo.Create(td))
	assert.NotZero(t, td.ID)

	events, err := repo.GetEvents(td.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, DownloadState(""), events[0].FromState)
	assert.Equal(t, StateQueued, events[0].ToState)
}

func TestRepository_CreateDuplicateExternalIDFails(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Create(newTestDownload("dupe")))
	err := repo.Create(newTestDownload("dupe"))

	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRepository_GetByID_RoundTrips(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("roundtrip")
	td.Size = 12345
	td.Progress = 42.5

	require.NoError(t, repo.Create(td))

	fetched, err := repo.GetByID(td.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, td.Title, fetched.Title)
	assert.Equal(t, td.Size, fetched.Size)
	assert.Equal(t, td.Progress, fetched.Progress)
	assert.Equal(t, StateQueued, fetched.State)
}

func TestRepository_GetByID_MissingReturnsNil(t *testing.T) {
	repo := newTestRepository(t)

	fetched, err := repo.GetByID(99999)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestRepository_UpdateState_ValidTransitionWritesEventAndRow(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("transition")
	require.NoError(t, repo.Create(td))

	require.NoError(t, repo.UpdateState(td, StateDownloading, "client reported active", ""))
	assert.Equal(t, StateDownloading, td.State)
	assert.Equal(t, StateQueued, td.PreviousState)

	fetched, err := repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDownloading, fetched.State)

	events, err := repo.GetEvents(td.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestRepository_UpdateState_InvalidTransitionRejectedWithoutWriting(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("invalid-transition")
	require.NoError(t, repo.Create(td))

	err := repo.UpdateState(td, StateImported, "skip ahead", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateQueued, td.State, "in-memory state must be untouched on rejection")

	events, err := repo.GetEvents(td.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "only the creation event should exist")
}

func TestRepository_UpdateState_SetsCompletedAndImportedTimestamps(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("timestamps")
	require.NoError(t, repo.Create(td))

	require.NoError(t, repo.UpdateState(td, StateDownloading, "", ""))
	require.NoError(t, repo.UpdateState(td, StateCompleted, "", ""))
	assert.NotNil(t, td.CompletedAt)

	require.NoError(t, repo.UpdateState(td, StateImportPending, "", ""))
	require.NoError(t, repo.UpdateState(td, StateImporting, "", ""))
	require.NoError(t, repo.UpdateState(td, StateImported, "", ""))
	assert.NotNil(t, td.ImportedAt)
}

func TestRepository_UpdateProgress_PersistsWithoutNewEvent(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("progress")
	require.NoError(t, repo.Create(td))

	td.Progress = 55.5
	td.Downloaded = 5000
	require.NoError(t, repo.UpdateProgress(td))

	fetched, err := repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.5, fetched.Progress)
	assert.Equal(t, int64(5000), fetched.Downloaded)

	events, err := repo.GetEvents(td.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "progress updates must not add events")
}

func TestRepository_AppendWarningAndError(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("warnings")
	require.NoError(t, repo.Create(td))

	require.NoError(t, repo.AppendWarning(td, "slow peers"))
	require.NoError(t, repo.AppendError(td, "tracker timeout"))

	fetched, err := repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Contains(t, fetched.Warnings, "slow peers")
	assert.Contains(t, fetched.Errors, "tracker timeout")
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	td := newTestDownload("deleteme")
	require.NoError(t, repo.Create(td))

	require.NoError(t, repo.Delete(td.ID))

	fetched, err := repo.GetByID(td.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestRepository_GetActive_ExcludesTerminalStates(t *testing.T) {
	repo := newTestRepository(t)

	active := newTestDownload("active-one")
	require.NoError(t, repo.Create(active))

	ignored := newTestDownload("ignored-one")
	require.NoError(t, repo.Create(ignored))
	require.NoError(t, repo.UpdateState(ignored, StateDownloading, "", ""))
	require.NoError(t, repo.UpdateState(ignored, StateStalled, "", ""))
	require.NoError(t, repo.UpdateState(ignored, StateIgnored, "", ""))

	results, err := repo.GetActive()
	require.NoError(t, err)

	found := false
	ignoredFound := false
	for _, r := range results {
		if r.ExternalID == active.ExternalID {
			found = true
		}
		if r.ExternalID == ignored.ExternalID {
			ignoredFound = true
		}
	}
	assert.True(t, found)
	assert.False(t, ignoredFound)
}
