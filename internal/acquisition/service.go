package acquisition

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/database"
	"github.com/reelforge/reelforge/internal/download"
	"github.com/reelforge/reelforge/internal/downloadclient"
	"github.com/reelforge/reelforge/internal/indexer"
	importpkg "github.com/reelforge/reelforge/internal/import"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/parser"
	"github.com/reelforge/reelforge/internal/quality"
	"github.com/reelforge/reelforge/internal/request"
)

// alternativeSearchCooldown bounds how often a failed media item is retried
// via searchAlternative, regardless of how many downloads fail for it.
const alternativeSearchCooldown = time.Hour

// Service orchestrates the download lifecycle using TrackedDownload.
type Service struct {
	db         *database.Database
	rawDB      *sql.DB
	clients    *downloadclient.Manager
	indexers   *indexer.Manager
	monitoring *download.MonitoringService
	requests   *request.LifecycleManager
	decisions  *importpkg.DecisionMaker
	upgrades   *importpkg.UpgradeChecker
	log        zerolog.Logger

	seedingConfig     download.SeedingConfig
	autoBlockAfter    int
	deleteOnFail      bool
	searchAlternative bool
	importTimeout     time.Duration

	pathLocks  sync.Map // destDir -> *sync.Mutex
	lastAltTry sync.Map // "mediaType:mediaID" -> time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// Config holds configuration for the acquisition service.
type Config struct {
	PollInterval      time.Duration
	StalledThreshold  time.Duration
	SeedingConfig     download.SeedingConfig
	AutoBlockAfter    int
	DeleteOnFail      bool
	SearchAlternative bool
	ImportTimeout     time.Duration
	RecycleBinPath    string
	KeepOldFiles      bool
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:      5 * time.Second,
		StalledThreshold:  6 * time.Hour,
		SeedingConfig:     download.DefaultSeedingConfig(),
		AutoBlockAfter:    3,
		DeleteOnFail:      true,
		SearchAlternative: true,
		ImportTimeout:     time.Hour,
	}
}

// NewService creates a new acquisition service.
func NewService(db *database.Database, rawDB *sql.DB, clients *downloadclient.Manager, indexers *indexer.Manager, cfg *Config, logger zerolog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	monConfig := download.MonitoringConfig{
		PollInterval:     cfg.PollInterval,
		StalledThreshold: cfg.StalledThreshold,
		SeedingConfig:    cfg.SeedingConfig,
	}
	monitoring := download.NewMonitoringService(rawDB, clients, monConfig, logging.Component(logger, "monitoring"))

	upgrades := importpkg.NewUpgradeChecker(logging.Component(logger, "upgrade"))
	if cfg.RecycleBinPath != "" {
		upgrades.SetRecycleBin(cfg.RecycleBinPath)
	}
	upgrades.SetKeepOldFiles(cfg.KeepOldFiles)

	importTimeout := cfg.ImportTimeout
	if importTimeout <= 0 {
		importTimeout = time.Hour
	}

	svc := &Service{
		db:                db,
		rawDB:             rawDB,
		clients:           clients,
		indexers:          indexers,
		monitoring:        monitoring,
		requests:          request.NewLifecycleManager(rawDB),
		decisions:         importpkg.NewDecisionMaker(),
		upgrades:          upgrades,
		log:               logging.Component(logger, "acquisition"),
		seedingConfig:     cfg.SeedingConfig,
		autoBlockAfter:    cfg.AutoBlockAfter,
		deleteOnFail:      cfg.DeleteOnFail,
		searchAlternative: cfg.SearchAlternative,
		importTimeout:     importTimeout,
		stopCh:            make(chan struct{}),
	}

	monitoring.OnReadyForImport = svc.handleReadyForImport
	monitoring.OnReadyToRemove = svc.handleReadyToRemove

	return svc
}

// Start begins the service.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.monitoring.Start()
	s.log.Info().Msg("acquisition service started")
}

// Stop stops the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.monitoring.Stop()
	s.log.Info().Msg("acquisition service stopped")
}

// handleReadyForImport is called when a download completes and is ready for import.
func (s *Service) handleReadyForImport(td *download.TrackedDownload) {
	correlationID := uuid.NewString()
	log := s.log.With().Str("correlation_id", correlationID).Str("title", td.Title).Logger()
	log.Info().Msg("processing import")

	if err := s.monitoring.MarkImporting(td); err != nil {
		log.Error().Err(err).Msg("marking as importing")
		return
	}

	if td.RequestID != nil {
		s.requests.MarkProcessing(*td.RequestID)
	}

	type importOutcome struct {
		path string
		err  error
	}
	done := make(chan importOutcome, 1)
	go func() {
		path, err := s.runImport(td)
		done <- importOutcome{path, err}
	}()

	select {
	case outcome := <-done:
		if outcome.err != nil {
			log.Error().Err(outcome.err).Msg("import failed")
			s.handleImportFailure(td, outcome.err)
			return
		}
		if err := s.monitoring.MarkImported(td, outcome.path); err != nil {
			log.Error().Err(err).Msg("marking as imported")
		}
		if td.RequestID != nil {
			s.requests.MarkAvailable(*td.RequestID)
		}
		log.Info().Str("dest_path", outcome.path).Str("size", humanize.Bytes(uint64(td.Size))).Msg("import succeeded")

	case <-time.After(s.importTimeout):
		log.Warn().Dur("timeout", s.importTimeout).Msg("import timed out")
		// Re-read the row and only fail it if it's still mid-import; the
		// import goroutine itself never changes the state.
		if fresh, err := s.monitoring.GetTrackedDownload(td.ID); err == nil && fresh != nil && fresh.State == download.StateImporting {
			s.handleImportFailure(fresh, fmt.Errorf("import_timeout: exceeded %s", s.importTimeout))
		}
		go func() {
			if outcome := <-done; outcome.err == nil {
				log.Warn().Str("dest_path", outcome.path).Msg("late import completion arrived after timeout handling, leaving result in place")
			}
		}()
	}
}

// runImport performs the actual import.
func (s *Service) runImport(td *download.TrackedDownload) (string, error) {
	sourcePath := td.DownloadPath
	if sourcePath == "" {
		return "", &importpkg.ImportError{Message: "no download path set"}
	}

	decisions, err := s.decisions.EvaluateFiles(sourcePath, td)
	if err != nil {
		return "", err
	}

	mainFile := s.decisions.GetMainFile(decisions)
	if mainFile == nil {
		return "", &importpkg.ImportError{Message: "no valid video files found (all rejected as samples)"}
	}

	library, err := s.getDestinationLibrary(td)
	if err != nil {
		return "", err
	}

	destPath, err := s.generateDestPath(td, library, mainFile)
	if err != nil {
		return "", err
	}
	destDir := filepath.Dir(destPath)

	// Serialize concurrent imports that land in the same destination
	// directory (e.g. two episodes of the same season completing at once).
	unlock := s.lockPath(destDir)
	defer unlock()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	if td.MediaID != nil {
		s.handleUpgrade(td, destDir)
	}

	if err := moveFile(mainFile.FilePath, destPath); err != nil {
		return "", fmt.Errorf("move main file: %w", err)
	}

	extras := s.decisions.GetExtras(decisions)
	if len(extras) > 0 {
		extrasDir := filepath.Join(destDir, "Extras")
		os.MkdirAll(extrasDir, 0755)
		for _, extra := range extras {
			if err := moveFile(extra.FilePath, filepath.Join(extrasDir, filepath.Base(extra.FilePath))); err != nil {
				s.log.Warn().Err(err).Str("file", extra.FilePath).Msg("failed to move extra")
			}
		}
	}

	subs := findSubtitles(sourcePath)
	for _, sub := range subs {
		subDest := generateSubtitlePath(destPath, sub)
		if err := moveFile(sub, subDest); err != nil {
			s.log.Warn().Err(err).Str("file", sub).Msg("failed to move subtitle")
		}
	}

	s.db.CreateImportHistory(&database.ImportHistory{
		SourcePath: sourcePath,
		DestPath:   destPath,
		MediaID:    td.MediaID,
		MediaType:  &td.MediaType,
		Success:    true,
	})

	if td.MediaID != nil {
		s.updateQualityStatus(*td.MediaID, td.MediaType, td.ParsedInfo)
	}

	s.cleanupSource(sourcePath)

	return destPath, nil
}

// lockPath returns an unlock func for the advisory per-destination-path
// mutex, creating one on first use.
func (s *Service) lockPath(path string) func() {
	v, _ := s.pathLocks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// handleUpgrade checks for and handles file upgrades.
func (s *Service) handleUpgrade(td *download.TrackedDownload, destDir string) {
	status, err := s.db.GetMediaQualityStatus(*td.MediaID, td.MediaType)
	if err != nil || status == nil {
		return
	}

	current := &parser.ParsedRelease{
		Resolution:  deref(status.CurrentResolution),
		Source:      deref(status.CurrentSource),
		HDR:         deref(status.CurrentHDR),
		AudioFormat: deref(status.CurrentAudio),
	}

	result := s.upgrades.ShouldUpgrade(current, td.ParsedInfo)
	if !result.ShouldUpgrade {
		return
	}

	s.log.Info().Str("from", result.CurrentTier).Str("to", result.NewTier).Str("reason", result.Reason).Msg("upgrade detected")

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".mkv" || ext == ".mp4" || ext == ".avi" {
			oldPath := filepath.Join(destDir, entry.Name())
			if err := s.upgrades.HandleOldFile(oldPath); err != nil {
				s.log.Warn().Err(err).Str("path", oldPath).Msg("failed to retire superseded file")
			}
		}
	}
}

// handleImportFailure handles when import fails.
func (s *Service) handleImportFailure(td *download.TrackedDownload, err error) {
	s.monitoring.MarkFailed(td, err.Error())

	if td.RequestID != nil {
		s.requests.MarkFailed(*td.RequestID, err.Error())
	}

	if td.ParsedInfo != nil {
		s.db.AddToBlocklist(&database.BlocklistEntry{
			MediaID:      td.MediaID,
			MediaType:    &td.MediaType,
			ReleaseTitle: td.Title,
			ReleaseGroup: &td.ParsedInfo.ReleaseGroup,
			Reason:       "import_failed",
			ErrorMessage: strPtr(err.Error()),
		})
	}

	if td.ParsedInfo != nil && td.ParsedInfo.ReleaseGroup != "" {
		s.db.IncrementGroupFailures(td.ParsedInfo.ReleaseGroup)
	}

	if s.deleteOnFail {
		s.removeFromClient(td, true)
	}

	if s.searchAlternative && td.MediaID != nil {
		go s.searchAlternative_(*td.MediaID, td.MediaType)
	}
}

// handleReadyToRemove is called when a download has met seeding requirements.
func (s *Service) handleReadyToRemove(td *download.TrackedDownload) {
	s.log.Info().Float64("ratio", td.Ratio).Dur("seeding_time", td.SeedingTime).Str("title", td.Title).Msg("download ready for removal")
	s.removeFromClient(td, false)
}

// removeFromClient removes a download from the client.
func (s *Service) removeFromClient(td *download.TrackedDownload, deleteFiles bool) {
	clientConfig, err := s.db.GetDownloadClient(td.DownloadClientID)
	if err != nil {
		s.log.Error().Err(err).Msg("getting download client")
		return
	}

	client, err := downloadclient.New(clientConfig)
	if err != nil {
		s.log.Error().Err(err).Msg("creating download client")
		return
	}

	if err := client.DeleteDownload(td.ExternalID, deleteFiles); err != nil {
		s.log.Error().Err(err).Msg("removing from client")
	} else {
		s.log.Info().Str("title", td.Title).Msg("removed from client")
	}
}

// GrabRelease sends a release to the download client, records it in grab
// history and marks the request processing. It does not create a tracked
// download row; the monitoring poll creates one when it first sees the
// download in the client, without a media or request binding.
func (s *Service) GrabRelease(result *indexer.ScoredSearchResult, mediaID int64, mediaType string, requestID *int64) error {
	var downloadURL string
	if result.MagnetLink != "" {
		downloadURL = result.MagnetLink
	} else {
		downloadURL = result.Link
	}

	isTorrent := result.IndexerType == "torznab" || result.MagnetLink != ""

	clients, err := s.db.GetEnabledDownloadClients()
	if err != nil {
		return err
	}

	var targetClient *database.DownloadClient
	for _, client := range clients {
		if isTorrent && (client.Type == "qbittorrent" || client.Type == "transmission") {
			targetClient = &client
			break
		}
		if !isTorrent && (client.Type == "sabnzbd" || client.Type == "nzbget") {
			targetClient = &client
			break
		}
	}

	if targetClient == nil {
		return &importpkg.ImportError{Message: "no suitable download client configured"}
	}

	client, err := downloadclient.New(targetClient)
	if err != nil {
		return err
	}

	category := targetClient.Category
	if isTorrent {
		err = client.AddTorrent(downloadURL, category)
	} else {
		err = client.AddNZB(downloadURL, category)
	}
	if err != nil {
		return err
	}

	s.db.AddGrabHistory(&database.GrabHistory{
		MediaID:           mediaID,
		MediaType:         mediaType,
		ReleaseTitle:      result.Title,
		IndexerID:         &result.IndexerID,
		IndexerName:       &result.IndexerName,
		Size:              result.Size,
		DownloadClientID:  &targetClient.ID,
		Status:            "grabbed",
		QualityResolution: &result.Resolution,
		QualitySource:     &result.Source,
		QualityCodec:      &result.Codec,
		QualityAudio:      &result.AudioCodec,
		ReleaseGroup:      &result.ReleaseGroup,
	})

	if requestID != nil {
		s.requests.MarkProcessing(*requestID)
	}

	s.log.Info().Str("title", result.Title).Str("client", targetClient.Name).Str("size", humanize.Bytes(uint64(result.Size))).Msg("grabbed release")
	return nil
}

// searchAlternative_ searches for an alternative release after a failure,
// rate-limited to one attempt per (mediaID, mediaType) per hour.
func (s *Service) searchAlternative_(mediaID int64, mediaType string) {
	key := mediaType + ":" + strconv.FormatInt(mediaID, 10)
	if last, ok := s.lastAltTry.Load(key); ok {
		if time.Since(last.(time.Time)) < alternativeSearchCooldown {
			s.log.Debug().Str("key", key).Msg("skipping alternative search, still within cooldown")
			return
		}
	}
	s.lastAltTry.Store(key, time.Now())

	s.log.Info().Int64("media_id", mediaID).Str("media_type", mediaType).Msg("searching for alternative release")

	if s.indexers == nil {
		return
	}

	wantedType := mediaType
	if mediaType == "episode" {
		wantedType = "show"
	}

	wanted, err := s.db.GetWantedByTmdb(wantedType, mediaID)
	if err != nil || wanted == nil {
		return
	}

	if err := s.SearchAndGrab(wanted); err != nil {
		s.log.Error().Err(err).Msg("failed to grab alternative")
	}
}

// pickBestResult scores a set of raw search results by base quality tier,
// skipping anything blocklisted, and returns the highest-scoring one.
func (s *Service) pickBestResult(results []indexer.SearchResult) *indexer.ScoredSearchResult {
	var best *indexer.ScoredSearchResult
	var bestScore int

	for _, result := range results {
		blocked, _ := s.db.IsReleaseBlocklisted(result.Title)
		if blocked {
			continue
		}

		parsed := parser.Parse(result.Title)
		qualityTier := quality.ComputeQualityTier(parsed)
		baseScore := quality.BaseQualityScores[qualityTier]

		if baseScore > bestScore {
			bestScore = baseScore
			var hdrSlice []string
			if parsed.HDR != "" {
				hdrSlice = []string{parsed.HDR}
			}
			best = &indexer.ScoredSearchResult{
				SearchResult: result,
				Quality:      qualityTier,
				Resolution:   parsed.Resolution,
				Source:       parsed.Source,
				Codec:        parsed.Codec,
				AudioCodec:   parsed.AudioFormat,
				HDR:          hdrSlice,
				ReleaseGroup: parsed.ReleaseGroup,
				BaseScore:    baseScore,
				TotalScore:   baseScore,
			}
		}
	}

	return best
}

// SearchAndGrab is the scheduled-search entry point: it queries indexers for
// a wanted movie or show, picks the best-scoring unblocklisted release, and
// grabs it. The periodic scheduler drives wanted items through this single
// path rather than keeping its own scoring/grab logic.
func (s *Service) SearchAndGrab(item *database.WantedItem) error {
	if s.indexers == nil {
		return errors.New("no indexer manager configured")
	}

	searchType := "movie"
	if item.Type == "show" || item.Type == "anime" {
		searchType = "tvsearch"
	}

	params := indexer.SearchParams{
		Query: item.Title,
		Type:  searchType,
		Limit: 50,
	}
	if item.TmdbID > 0 {
		params.TmdbID = strconv.FormatInt(item.TmdbID, 10)
	}
	if item.ImdbID != nil {
		params.ImdbID = *item.ImdbID
	}

	results, err := s.indexers.Search(params)
	if err != nil {
		return fmt.Errorf("search failed for %s: %w", item.Title, err)
	}

	s.db.UpdateWantedLastSearched(item.ID)

	if len(results) == 0 {
		s.log.Debug().Str("title", item.Title).Msg("no search results")
		return nil
	}

	best := s.pickBestResult(results)
	if best == nil {
		s.log.Debug().Str("title", item.Title).Msg("no acceptable releases found")
		return nil
	}

	if err := s.GrabRelease(best, item.TmdbID, item.Type, nil); err != nil {
		return fmt.Errorf("grab failed for %s: %w", best.Title, err)
	}

	s.log.Info().Str("title", best.Title).Str("wanted", item.Title).Msg("grabbed release for wanted item")
	return nil
}

// GetActiveDownloads returns all active tracked downloads.
func (s *Service) GetActiveDownloads() ([]*download.TrackedDownload, error) {
	return s.monitoring.GetActiveDownloads()
}

// GetTrackedDownload returns a specific tracked download.
func (s *Service) GetTrackedDownload(id int64) (*download.TrackedDownload, error) {
	return s.monitoring.GetTrackedDownload(id)
}

// DeleteTrackedDownload removes a tracked download, optionally deleting from client.
func (s *Service) DeleteTrackedDownload(id int64, deleteFromClient bool, deleteFiles bool) error {
	td, err := s.monitoring.GetTrackedDownload(id)
	if err != nil {
		return err
	}
	if td == nil {
		return nil
	}

	if deleteFromClient {
		s.removeFromClient(td, deleteFiles)
	}

	return s.monitoring.DeleteTrackedDownload(id)
}

// --- Helper functions ---

func (s *Service) getDestinationLibrary(td *download.TrackedDownload) (*database.Library, error) {
	libraries, err := s.db.GetLibraries()
	if err != nil {
		return nil, err
	}

	targetType := "movies"
	if td.MediaType == "show" || td.MediaType == "episode" {
		targetType = "tv"
	}

	for _, lib := range libraries {
		if lib.Type == targetType {
			return &lib, nil
		}
	}

	if len(libraries) > 0 {
		return &libraries[0], nil
	}

	return nil, &importpkg.ImportError{Message: "no library configured"}
}

func (s *Service) generateDestPath(td *download.TrackedDownload, library *database.Library, file *importpkg.FileDecision) (string, error) {
	parsed := td.ParsedInfo
	if parsed == nil {
		parsed = parser.Parse(td.Title)
	}

	ext := filepath.Ext(file.FilePath)
	year := ""
	if parsed.Year > 0 {
		year = strconv.Itoa(parsed.Year)
	}

	if td.MediaType == "movie" {
		folderName := parsed.Title
		if year != "" {
			folderName = parsed.Title + " (" + year + ")"
		}
		fileName := folderName + ext
		return filepath.Join(library.Path, folderName, fileName), nil
	}

	showFolder := parsed.Title
	if year != "" {
		showFolder = parsed.Title + " (" + year + ")"
	}

	seasonFolder := "Season " + padZero(parsed.Season)
	if parsed.Season == 0 {
		seasonFolder = "Season 1"
	}

	episodeFile := parsed.Title
	if parsed.Season > 0 && parsed.Episode > 0 {
		episodeFile = parsed.Title + " - S" + padZero(parsed.Season) + "E" + padZero(parsed.Episode)
	}
	episodeFile += ext

	return filepath.Join(library.Path, showFolder, seasonFolder, episodeFile), nil
}

func (s *Service) updateQualityStatus(mediaID int64, mediaType string, parsed *parser.ParsedRelease) {
	if parsed == nil {
		return
	}

	s.db.UpsertMediaQualityStatus(&database.MediaQualityStatus{
		MediaID:           mediaID,
		MediaType:         mediaType,
		CurrentResolution: &parsed.Resolution,
		CurrentSource:     &parsed.Source,
		CurrentHDR:        &parsed.HDR,
		CurrentAudio:      &parsed.AudioFormat,
		TargetMet:         true,
	})
}

func (s *Service) cleanupSource(sourcePath string) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return
	}

	if info.IsDir() {
		os.RemoveAll(sourcePath)
	} else {
		os.Remove(sourcePath)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}

func padZero(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// moveFile renames src to dst, falling back to a copy-fsync-rename-unlink
// sequence when they live on different filesystems (os.Rename's EXDEV).
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	return copyThenRemove(src, dst)
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".importing"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Remove(src)
}

func findSubtitles(dir string) []string {
	var subs []string
	subExts := []string{".srt", ".sub", ".ass", ".ssa", ".vtt"}

	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, subExt := range subExts {
			if ext == subExt {
				subs = append(subs, path)
				break
			}
		}
		return nil
	})

	return subs
}

func generateSubtitlePath(videoPath, subPath string) string {
	videoBase := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	subExt := filepath.Ext(subPath)
	subName := strings.TrimSuffix(filepath.Base(subPath), subExt)

	lang := ""
	parts := strings.Split(subName, ".")
	if len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		if len(lastPart) == 2 || len(lastPart) == 3 {
			lang = "." + lastPart
		}
	}

	return videoBase + lang + subExt
}
