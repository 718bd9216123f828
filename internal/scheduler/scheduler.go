package scheduler

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/reelforge/reelforge/internal/acquisition"
	"github.com/reelforge/reelforge/internal/database"
	"github.com/reelforge/reelforge/internal/indexer"
	"github.com/reelforge/reelforge/internal/storage"
)

// Scheduler drives the periodic acquisition loop: searching monitored items
// and syncing RSS feeds on a cron-style cadence, plus a handful of
// housekeeping tasks. The actual search/grab logic lives in
// acquisition.Service; the scheduler's job is purely "when", not "how".
type Scheduler struct {
	db       *database.Database
	indexers *indexer.Manager
	acq      *acquisition.Service

	cron gocron.Scheduler

	running bool
	mu      sync.Mutex

	// Configurable intervals (in minutes)
	searchInterval int
	rssInterval    int

	// Task tracking
	taskRunning map[string]bool
	taskMu      sync.RWMutex

	// Active search tracking for UI
	activeSearch string
}

func New(db *database.Database, indexers *indexer.Manager, acq *acquisition.Service) *Scheduler {
	s := &Scheduler{
		db:             db,
		indexers:       indexers,
		acq:            acq,
		searchInterval: 60, // Default: search every 60 minutes
		rssInterval:    15, // Default: check RSS every 15 minutes
		taskRunning:    make(map[string]bool),
	}
	s.initDefaultTasks()
	return s
}

// SetIntervals overrides the default search/RSS polling intervals (in
// minutes). Zero values are ignored and leave the default in place.
func (s *Scheduler) SetIntervals(searchMinutes, rssMinutes int) {
	if searchMinutes > 0 {
		s.searchInterval = searchMinutes
	}
	if rssMinutes > 0 {
		s.rssInterval = rssMinutes
	}
}

// initDefaultTasks creates default task entries in the database
func (s *Scheduler) initDefaultTasks() {
	defaultTasks := []database.ScheduledTask{
		{
			Name:            "Search Monitored",
			Description:     "Search indexers for monitored movies and shows",
			TaskType:        "search",
			Enabled:         true,
			IntervalMinutes: 60,
		},
		{
			Name:            "RSS Sync",
			Description:     "Check RSS feeds for new releases",
			TaskType:        "rss",
			Enabled:         true,
			IntervalMinutes: 15,
		},
		{
			Name:            "Import Downloads",
			Description:     "Check download clients and import completed items",
			TaskType:        "import",
			Enabled:         true,
			IntervalMinutes: 1,
		},
		{
			Name:            "Cleanup",
			Description:     "Clean up old history, logs, and temporary files",
			TaskType:        "cleanup",
			Enabled:         true,
			IntervalMinutes: 1440, // 24 hours
		},
		{
			Name:            "Refresh Metadata",
			Description:     "Refresh metadata for items missing info",
			TaskType:        "metadata_refresh",
			Enabled:         true,
			IntervalMinutes: 360, // 6 hours
		},
		{
			Name:            "Library Scan",
			Description:     "Scan library folders for new and changed files",
			TaskType:        "library_scan",
			Enabled:         true,
			IntervalMinutes: 60, // 1 hour
		},
		{
			Name:            "Trakt Sync",
			Description:     "Sync watch history and ratings with Trakt.tv",
			TaskType:        "trakt_sync",
			Enabled:         true,
			IntervalMinutes: 60, // 1 hour
		},
	}

	for _, task := range defaultTasks {
		if err := s.db.UpsertTask(&task); err != nil {
			log.Printf("Failed to create task %s: %v", task.Name, err)
		} else {
			log.Printf("Created task: %s (ID: %d)", task.Name, task.ID)
		}
	}
}

func (s *Scheduler) SetSearchInterval(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if minutes > 0 {
		s.searchInterval = minutes
	}
}

func (s *Scheduler) SetRSSInterval(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if minutes > 0 {
		s.rssInterval = minutes
	}
}

// Start loads configured intervals and launches the cron-scheduled search
// and RSS jobs via gocron.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.loadIntervals()

	cron, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Scheduler: failed to create cron scheduler: %v", err)
		return
	}

	if _, err := cron.NewJob(
		gocron.DurationJob(time.Duration(s.searchInterval)*time.Minute),
		gocron.NewTask(func() { s.executeTaskByName("Search Monitored") }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		log.Printf("Scheduler: failed to schedule search job: %v", err)
	}

	if _, err := cron.NewJob(
		gocron.DurationJob(time.Duration(s.rssInterval)*time.Minute),
		gocron.NewTask(func() { s.executeTaskByName("RSS Sync") }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		log.Printf("Scheduler: failed to schedule RSS job: %v", err)
	}

	s.mu.Lock()
	s.cron = cron
	s.running = true
	s.mu.Unlock()

	cron.Start()
	log.Printf("Scheduler started (search: %dm, rss: %dm)", s.searchInterval, s.rssInterval)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cron := s.cron
	s.mu.Unlock()

	if cron != nil {
		if err := cron.Shutdown(); err != nil {
			log.Printf("Scheduler: error during shutdown: %v", err)
		}
	}
	log.Println("Scheduler stopped")
}

func (s *Scheduler) loadIntervals() {
	if val, err := s.db.GetSetting("scheduler_search_interval"); err == nil && val != "" {
		if mins, err := strconv.Atoi(val); err == nil && mins > 0 {
			s.searchInterval = mins
		}
	}
	if val, err := s.db.GetSetting("scheduler_rss_interval"); err == nil && val != "" {
		if mins, err := strconv.Atoi(val); err == nil && mins > 0 {
			s.rssInterval = mins
		}
	}
}

// GetStatus returns all tasks with their current running status
func (s *Scheduler) GetStatus() []database.ScheduledTask {
	tasks, _ := s.db.GetAllTasks()

	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	for i := range tasks {
		if running, ok := s.taskRunning[tasks[i].Name]; ok {
			tasks[i].IsRunning = running
		}
	}

	return tasks
}

// GetActiveSearch returns the title of the item currently being searched
func (s *Scheduler) GetActiveSearch() string {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()
	return s.activeSearch
}

// GetRunningTaskNames returns a list of currently running task names
func (s *Scheduler) GetRunningTaskNames() []string {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	var names []string
	for name, running := range s.taskRunning {
		if running {
			names = append(names, name)
		}
	}
	return names
}

// TriggerTask manually triggers a task by ID
func (s *Scheduler) TriggerTask(taskID int64) error {
	task, err := s.db.GetTask(taskID)
	if err != nil {
		return err
	}

	go s.executeTask(task)
	return nil
}

// UpdateTask updates task settings and restarts if needed
func (s *Scheduler) UpdateTask(taskID int64, enabled bool, intervalMinutes int) error {
	task, err := s.db.GetTask(taskID)
	if err != nil {
		return err
	}

	task.Enabled = enabled
	task.IntervalMinutes = intervalMinutes

	return s.db.UpdateTask(task)
}

// executeTask runs a task and records the result
func (s *Scheduler) executeTask(task *database.ScheduledTask) {
	// Check if already running
	s.taskMu.Lock()
	if s.taskRunning[task.Name] {
		s.taskMu.Unlock()
		return
	}
	s.taskRunning[task.Name] = true
	s.taskMu.Unlock()

	defer func() {
		s.taskMu.Lock()
		s.taskRunning[task.Name] = false
		s.taskMu.Unlock()
	}()

	startedAt := time.Now()
	var itemsProcessed, itemsFound int
	var taskError error

	log.Printf("Task started: %s (ID: %d, Type: %s)", task.Name, task.ID, task.TaskType)

	switch task.TaskType {
	case "search":
		itemsProcessed, itemsFound = s.runSearchTask()
	case "rss":
		itemsProcessed, itemsFound = s.runRSSTask()
	case "import":
		itemsProcessed = s.runImportTask()
	case "cleanup":
		itemsProcessed = s.runCleanupTask()
	case "metadata_refresh":
		itemsProcessed = s.runMetadataRefreshTask()
	case "library_scan":
		itemsProcessed = s.runLibraryScanTask()
	case "trakt_sync":
		itemsProcessed = s.runTraktSyncTask()
	}

	finishedAt := time.Now()
	durationMs := finishedAt.Sub(startedAt).Milliseconds()

	log.Printf("Task completed: %s - processed: %d, found: %d, duration: %dms", task.Name, itemsProcessed, itemsFound, durationMs)

	status := "success"
	var errorMsg *string
	if taskError != nil {
		status = "failed"
		errStr := taskError.Error()
		errorMsg = &errStr
	}

	s.db.RecordTaskRun(task.ID, startedAt, finishedAt, status, itemsProcessed, itemsFound, errorMsg, nil)
	s.db.UpdateTaskStats(task.ID, status, durationMs, errorMsg)
}

// runSearchTask walks every monitored item due for a re-search and hands it
// to acquisition.Service.SearchAndGrab, which owns scoring and grabbing.
func (s *Scheduler) runSearchTask() (processed, found int) {
	autoSearch, _ := s.db.GetSetting("scheduler_auto_search")
	if autoSearch != "true" {
		return 0, 0
	}

	if s.shouldPauseDownloads() {
		log.Printf("Scheduler: skipping search, downloads paused due to low storage")
		return 0, 0
	}

	items, err := s.db.GetMonitoredItems()
	if err != nil {
		return 0, 0
	}

	for _, item := range items {
		if item.LastSearched != nil {
			hoursSinceLast := time.Since(*item.LastSearched).Hours()
			if hoursSinceLast < float64(s.searchInterval)/60.0 {
				continue
			}
		}

		excluded, _ := s.db.IsMediaExcluded(item.TmdbID, item.Type)
		if excluded {
			continue
		}

		s.taskMu.Lock()
		s.activeSearch = item.Title
		s.taskMu.Unlock()

		if err := s.acq.SearchAndGrab(&item); err != nil {
			log.Printf("Scheduler: search failed for %s: %v", item.Title, err)
		} else {
			found++
		}
		processed++

		time.Sleep(5 * time.Second)
	}

	s.taskMu.Lock()
	s.activeSearch = ""
	s.taskMu.Unlock()

	return processed, found
}

// runRSSTask polls each enabled indexer's RSS feed. It only counts fresh
// results; matching a feed item against a wanted release and grabbing it
// happens on the regular search cadence through acquisition.Service.
func (s *Scheduler) runRSSTask() (processed, found int) {
	rssEnabled, _ := s.db.GetSetting("scheduler_rss_enabled")
	if rssEnabled != "true" {
		return 0, 0
	}

	indexers, err := s.db.GetEnabledIndexers()
	if err != nil {
		return 0, 0
	}

	for _, idx := range indexers {
		results, err := s.indexers.FetchRSS(idx.ID)
		if err != nil {
			continue
		}
		processed++
		found += len(results)
	}

	return processed, found
}

// runImportTask checks for completed downloads
func (s *Scheduler) runImportTask() int {
	// Actual import is handled by acquisition.Service's monitoring loop.
	return 0
}

// runCleanupTask cleans up old data
func (s *Scheduler) runCleanupTask() int {
	processed := 0

	if err := s.db.CleanupTaskHistory(30); err == nil {
		processed++
	}

	return processed
}

// runMetadataRefreshTask refreshes missing metadata
func (s *Scheduler) runMetadataRefreshTask() int {
	// Metadata enrichment (poster/cast/rating retrieval) is an external
	// collaborator this pipeline doesn't own.
	return 0
}

// runLibraryScanTask is a no-op placeholder; library filesystem scanning
// is out of scope for the acquisition pipeline this scheduler drives.
func (s *Scheduler) runLibraryScanTask() int {
	return 0
}

// runTraktSyncTask is a no-op placeholder; watch-history sync with an
// external service is out of scope for the acquisition pipeline.
func (s *Scheduler) runTraktSyncTask() int {
	return 0
}

// executeTaskByName runs a task by name
func (s *Scheduler) executeTaskByName(name string) {
	task, err := s.db.GetTaskByName(name)
	if err != nil {
		log.Printf("Scheduler: task not found: %s", name)
		return
	}
	if !task.Enabled {
		return
	}
	s.executeTask(task)
}

// shouldPauseDownloads checks configured libraries' free disk space against
// an operator-set threshold.
func (s *Scheduler) shouldPauseDownloads() bool {
	settings, err := s.db.GetAllSettings()
	if err != nil {
		return false
	}

	pauseEnabled := settings["storage_pause_enabled"] == "true"
	if !pauseEnabled {
		return false
	}

	thresholdGB := int64(100)
	if val, ok := settings["storage_threshold_gb"]; ok {
		var parsed int64
		if err := json.Unmarshal([]byte(val), &parsed); err == nil {
			thresholdGB = parsed
		}
	}

	libraries, err := s.db.GetLibraries()
	if err != nil {
		return false
	}

	for _, lib := range libraries {
		usage, err := storage.GetDiskUsage(lib.Path)
		if err != nil {
			continue
		}

		freeGB := int64(usage.Free / (1024 * 1024 * 1024))
		if freeGB < thresholdGB {
			log.Printf("Scheduler: pausing downloads - low disk space on %s: %d GB free (threshold: %d GB)", lib.Path, freeGB, thresholdGB)
			return true
		}
	}

	return false
}
