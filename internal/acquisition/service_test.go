package acquisition

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeref(t *testing.T) {
	assert.Equal(t, "", deref(nil))
	s := "value"
	assert.Equal(t, "value", deref(&s))
}

func TestStrPtr(t *testing.T) {
	p := strPtr("hello")
	require.NotNil(t, p)
	assert.Equal(t, "hello", *p)
}

func TestPadZero(t *testing.T) {
	assert.Equal(t, "05", padZero(5))
	assert.Equal(t, "12", padZero(12))
	assert.Equal(t, "00", padZero(0))
}

func TestMoveFile_SameFilesystemRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "nested", "dst.mkv")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	require.NoError(t, moveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCopyThenRemove_CopiesAndRemovesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "dst.mkv")
	require.NoError(t, os.WriteFile(src, []byte("movie bytes"), 0644))

	require.NoError(t, copyThenRemove(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source should be removed")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "movie bytes", string(data))
}

func TestFindSubtitles_FindsKnownExtensionsOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"movie.mkv", "movie.en.srt", "movie.fr.sub", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	subs := findSubtitles(dir)

	assert.Len(t, subs, 2)
	for _, s := range subs {
		ext := filepath.Ext(s)
		assert.Contains(t, []string{".srt", ".sub"}, ext)
	}
}

func TestGenerateSubtitlePath_PreservesLanguageTag(t *testing.T) {
	video := "/media/Movie.2024.1080p.mkv"
	sub := "/downloads/Movie.2024.1080p.en.srt"

	got := generateSubtitlePath(video, sub)

	assert.Equal(t, "/media/Movie.2024.1080p.en.srt", got)
}

func TestGenerateSubtitlePath_NoLanguageTag(t *testing.T) {
	video := "/media/Movie.2024.1080p.mkv"
	sub := "/downloads/subtitle.srt"

	got := generateSubtitlePath(video, sub)

	assert.Equal(t, "/media/Movie.2024.1080p.srt", got)
}

func TestLockPath_SerializesConcurrentCallersOnSamePath(t *testing.T) {
	s := &Service{}
	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.lockPath("/media/same-dest")
			defer unlock()
			cur := atomic.AddInt64(&counter, 1)
			assert.Equal(t, int64(1), cur)
			atomic.AddInt64(&counter, -1)
		}()
	}
	wg.Wait()
}

func TestLockPath_DifferentPathsDoNotShareALock(t *testing.T) {
	s := &Service{}
	unlockA := s.lockPath("/media/a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := s.lockPath("/media/b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lockPath on a different path blocked unexpectedly")
	}
}
