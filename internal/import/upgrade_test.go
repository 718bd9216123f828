package importpkg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/parser"
)

func newTestUpgradeChecker() *UpgradeChecker {
	return NewUpgradeChecker(zerolog.Nop())
}

func TestShouldUpgrade_HigherTierWins(t *testing.T) {
	u := newTestUpgradeChecker()

	existing := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl"}
	candidate := &parser.ParsedRelease{Resolution: "2160p", Source: "bluray"}

	result := u.ShouldUpgrade(existing, candidate)

	assert.True(t, result.ShouldUpgrade)
	assert.Equal(t, "Higher quality tier", result.Reason)
	assert.Greater(t, result.NewScore, result.CurrentScore)
}

func TestShouldUpgrade_LowerTierNeverUpgrades(t *testing.T) {
	u := newTestUpgradeChecker()

	existing := &parser.ParsedRelease{Resolution: "2160p", Source: "remux"}
	candidate := &parser.ParsedRelease{Resolution: "720p", Source: "hdtv"}

	result := u.ShouldUpgrade(existing, candidate)

	assert.False(t, result.ShouldUpgrade)
}

func TestShouldUpgrade_SameTierProperWins(t *testing.T) {
	u := newTestUpgradeChecker()

	existing := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl"}
	candidate := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl", IsProper: true}

	result := u.ShouldUpgrade(existing, candidate)

	assert.True(t, result.ShouldUpgrade)
	assert.Equal(t, "PROPER release", result.Reason)
}

func TestShouldUpgrade_SameTierBetterAudioWins(t *testing.T) {
	u := newTestUpgradeChecker()

	existing := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl", AudioFormat: "dd"}
	candidate := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl", AudioFormat: "atmos"}

	result := u.ShouldUpgrade(existing, candidate)

	assert.True(t, result.ShouldUpgrade)
	assert.Equal(t, "Better audio codec", result.Reason)
}

func TestShouldUpgrade_SameTierNoImprovementRejected(t *testing.T) {
	u := newTestUpgradeChecker()

	existing := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl", AudioFormat: "atmos"}
	candidate := &parser.ParsedRelease{Resolution: "1080p", Source: "webdl", AudioFormat: "dd"}

	result := u.ShouldUpgrade(existing, candidate)

	assert.False(t, result.ShouldUpgrade)
	assert.Equal(t, "Not an upgrade", result.Reason)
}

func TestHandleOldFile_KeepOldFilesSkipsDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.mkv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	u := newTestUpgradeChecker()
	u.SetKeepOldFiles(true)

	require.NoError(t, u.HandleOldFile(path))

	_, err := os.Stat(path)
	assert.NoError(t, err, "file should still exist")
}

func TestHandleOldFile_RecycleBinMovesFile(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "recycle")
	path := filepath.Join(dir, "old.mkv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	u := newTestUpgradeChecker()
	u.SetRecycleBin(bin)

	require.NoError(t, u.HandleOldFile(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "source file should be gone")

	entries, err := os.ReadDir(bin)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHandleOldFile_NoRecycleBinDeletes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.mkv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	u := newTestUpgradeChecker()
	require.NoError(t, u.HandleOldFile(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanRecycleBin_RemovesAgedEntriesOnly(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "recycle")
	require.NoError(t, os.MkdirAll(bin, 0755))

	oldFile := filepath.Join(bin, "old.mkv")
	freshFile := filepath.Join(bin, "fresh.mkv")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0644))

	aged := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, aged, aged))

	u := newTestUpgradeChecker()
	u.SetRecycleBin(bin)

	require.NoError(t, u.CleanRecycleBin(24*time.Hour))

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "aged file should be removed")

	_, err = os.Stat(freshFile)
	assert.NoError(t, err, "fresh file should remain")
}
