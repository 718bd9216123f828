package download

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from DownloadState
		to   DownloadState
		want bool
	}{
		{"queued to downloading is allowed", StateQueued, StateDownloading, true},
		{"queued to imported is not allowed", StateQueued, StateImported, false},
		{"downloading to completed is allowed", StateDownloading, StateCompleted, true},
		{"downloading to downloading is not allowed", StateDownloading, StateDownloading, false},
		{"imported is terminal", StateImported, StateQueued, false},
		{"ignored is terminal", StateIgnored, StateDownloading, false},
		{"failed can retry to queued", StateFailed, StateQueued, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := &TrackedDownload{State: tt.from}
			assert.Equal(t, tt.want, td.CanTransitionTo(tt.to))
		})
	}
}

func TestTransitionTo_ValidSetsStateAndTimestamp(t *testing.T) {
	td := &TrackedDownload{State: StateQueued}

	require.NoError(t, td.TransitionTo(StateDownloading, "grabbed"))

	assert.Equal(t, StateDownloading, td.State)
	assert.Equal(t, StateQueued, td.PreviousState)
	assert.False(t, td.StateChangedAt.IsZero())
}

func TestTransitionTo_InvalidReturnsError(t *testing.T) {
	td := &TrackedDownload{State: StateImported}

	err := td.TransitionTo(StateDownloading, "nope")

	assert.Error(t, err)
	assert.Equal(t, StateImported, td.State, "state must be unchanged on rejection")
}

func TestTransitionTo_CompletedSetsCompletedAt(t *testing.T) {
	td := &TrackedDownload{State: StateDownloading}

	require.NoError(t, td.TransitionTo(StateCompleted, "done"))

	assert.NotNil(t, td.CompletedAt)
}

func TestTransitionTo_ImportedSetsImportedAt(t *testing.T) {
	td := &TrackedDownload{State: StateImporting}

	require.NoError(t, td.TransitionTo(StateImported, "imported"))

	assert.NotNil(t, td.ImportedAt)
}

func TestCanRemoveFromClient(t *testing.T) {
	base := SeedingConfig{MinRatio: 1.0, MinSeedTime: time.Hour, MaxSeedTime: 24 * time.Hour}

	tests := []struct {
		name string
		td   *TrackedDownload
		want bool
	}{
		{
			"not imported yet",
			&TrackedDownload{State: StateDownloading, Ratio: 2.0, SeedingTime: 2 * time.Hour},
			false,
		},
		{
			"meets ratio and time",
			&TrackedDownload{State: StateImported, Ratio: 1.5, SeedingTime: 2 * time.Hour},
			true,
		},
		{
			"ratio met but time not yet",
			&TrackedDownload{State: StateImported, Ratio: 2.0, SeedingTime: time.Minute},
			false,
		},
		{
			"hit max seed time regardless of ratio",
			&TrackedDownload{State: StateImported, Ratio: 0, SeedingTime: 25 * time.Hour},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.td.CanRemoveFromClient(base))
		})
	}
}

func TestIsActive(t *testing.T) {
	assert.True(t, (&TrackedDownload{State: StateQueued}).IsActive())
	assert.True(t, (&TrackedDownload{State: StateDownloading}).IsActive())
	assert.True(t, (&TrackedDownload{State: StatePaused}).IsActive())
	assert.True(t, (&TrackedDownload{State: StateStalled}).IsActive())
	assert.False(t, (&TrackedDownload{State: StateImported}).IsActive())
	assert.False(t, (&TrackedDownload{State: StateCompleted}).IsActive())
}

func TestIsPending(t *testing.T) {
	assert.True(t, (&TrackedDownload{State: StateCompleted}).IsPending())
	assert.True(t, (&TrackedDownload{State: StateImportPending}).IsPending())
	assert.True(t, (&TrackedDownload{State: StateImportBlocked}).IsPending())
	assert.False(t, (&TrackedDownload{State: StateDownloading}).IsPending())
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, (&TrackedDownload{State: StateImported}).IsTerminal())
	assert.True(t, (&TrackedDownload{State: StateIgnored}).IsTerminal())
	assert.False(t, (&TrackedDownload{State: StateFailed}).IsTerminal())
}

func TestHasError(t *testing.T) {
	assert.True(t, (&TrackedDownload{State: StateFailed}).HasError())
	assert.True(t, (&TrackedDownload{Errors: []string{"boom"}}).HasError())
	assert.False(t, (&TrackedDownload{State: StateDownloading}).HasError())
}

func TestSetImportBlocked(t *testing.T) {
	td := &TrackedDownload{State: StateImportPending}

	require.NoError(t, td.SetImportBlocked("missing subtitle"))

	assert.Equal(t, StateImportBlocked, td.State)
	assert.Equal(t, "missing subtitle", td.ImportBlockReason)
}

func TestSetImportBlocked_InvalidFromStateFails(t *testing.T) {
	td := &TrackedDownload{State: StateQueued}

	err := td.SetImportBlocked("too early")

	assert.Error(t, err)
	assert.Empty(t, td.ImportBlockReason)
}
