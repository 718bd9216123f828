package database

import (
	"database/sql"
	"embed"
	"encoding/json"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Database struct {
	db *sql.DB
}


func (d *Database) DB() *sql.DB {
	return d.db
}


type Library struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	Type         string `json:"type"` // movies, tv, anime, music, books
	ScanInterval int    `json:"scanInterval"`
}


type DownloadClient struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"` // qbittorrent, transmission, sabnzbd, nzbget
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIKey   string `json:"apiKey,omitempty"` // For SABnzbd/NZBGet
	UseTLS   bool   `json:"useTls"`
	Category string `json:"category,omitempty"` // Download category/label
	Priority int    `json:"priority"`           // Client priority (for selecting which to use)
	Enabled  bool   `json:"enabled"`
}


type Indexer struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"` // torznab, newznab, prowlarr
	URL                string `json:"url"`
	APIKey             string `json:"apiKey,omitempty"`
	Categories         string `json:"categories,omitempty"` // Comma-separated category IDs
	Priority           int    `json:"priority"`
	Enabled            bool   `json:"enabled"`
	ProwlarrID         *int64 `json:"prowlarrId,omitempty"`
	SyncedFromProwlarr bool   `json:"syncedFromProwlarr"`
	Protocol           string `json:"protocol,omitempty"` // torrent, usenet
	SupportsMovies     bool   `json:"supportsMovies"`
	SupportsTV         bool   `json:"supportsTV"`
	SupportsMusic      bool   `json:"supportsMusic"`
	SupportsBooks      bool   `json:"supportsBooks"`
	SupportsAnime      bool   `json:"supportsAnime"`
	SupportsIMDB       bool   `json:"supportsImdb"`
	SupportsTMDB       bool   `json:"supportsTmdb"`
	SupportsTVDB       bool   `json:"supportsTvdb"`
}


type WantedItem struct {
	ID               int64      `json:"id"`
	Type             string     `json:"type"`             // movie, show
	TmdbID           int64      `json:"tmdbId"`
	ImdbID           *string    `json:"imdbId,omitempty"` // IMDB ID for more accurate searches
	Title            string     `json:"title"`
	Year             int        `json:"year,omitempty"`
	PosterPath       *string    `json:"posterPath,omitempty"`
	QualityProfileID int64      `json:"qualityProfileId"`  // Deprecated, kept for compatibility
	QualityPresetID  *int64     `json:"qualityPresetId,omitempty"` // New: which preset to use for filtering
	Monitored        bool       `json:"monitored"`
	Seasons          string     `json:"seasons,omitempty"`       // JSON array of season numbers, empty = all
	SearchNow        bool       `json:"searchNow,omitempty"`     // For triggering immediate search
	LastSearched     *time.Time `json:"lastSearched,omitempty"`
	AddedAt          time.Time  `json:"addedAt"`
}


type Request struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	Type             string    `json:"type"` // movie, show
	TmdbID           int64     `json:"tmdbId"`
	Title            string    `json:"title"`
	Year             int       `json:"year,omitempty"`
	Overview         *string   `json:"overview,omitempty"`
	PosterPath       *string   `json:"posterPath,omitempty"`
	BackdropPath     *string   `json:"backdropPath,omitempty"`
	QualityProfileID *int64    `json:"qualityProfileId,omitempty"` // Deprecated, use QualityPresetID
	QualityPresetID  *int64    `json:"qualityPresetId,omitempty"`
	Status           string    `json:"status"` // requested, approved, denied, available
	StatusReason     *string   `json:"statusReason,omitempty"`
	RequestedAt      time.Time `json:"requestedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type MediaQualityStatus struct {
	ID                 int64      `json:"id"`
	MediaID            int64      `json:"mediaId"`
	MediaType          string     `json:"mediaType"`
	CurrentResolution  *string    `json:"currentResolution"`
	CurrentSource      *string    `json:"currentSource"`
	CurrentHDR         *string    `json:"currentHdr"`
	CurrentAudio       *string    `json:"currentAudio"`
	CurrentEdition     *string    `json:"currentEdition"`
	TargetMet          bool       `json:"targetMet"`
	UpgradeAvailable   bool       `json:"upgradeAvailable"`
	LastSearch         *time.Time `json:"lastSearch"`
	UpgradeSearchedAt  *time.Time `json:"upgradeSearchedAt"`
	CurrentScore       int        `json:"currentScore"`
	CutoffScore        int        `json:"cutoffScore"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}


type ImportHistory struct {
	ID         int64     `json:"id"`
	DownloadID *int64    `json:"downloadId"`
	SourcePath string    `json:"sourcePath"`
	DestPath   string    `json:"destPath"`
	MediaID    *int64    `json:"mediaId"`
	MediaType  *string   `json:"mediaType"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error"`
	CreatedAt  time.Time `json:"createdAt"`
}


type GrabHistory struct {
	ID               int64      `json:"id"`
	MediaID          int64      `json:"mediaId"`
	MediaType        string     `json:"mediaType"`
	ReleaseTitle     string     `json:"releaseTitle"`
	IndexerID        *int64     `json:"indexerId"`
	IndexerName      *string    `json:"indexerName"`
	QualityResolution *string   `json:"qualityResolution"`
	QualitySource    *string    `json:"qualitySource"`
	QualityCodec     *string    `json:"qualityCodec"`
	QualityAudio     *string    `json:"qualityAudio"`
	QualityHDR       *string    `json:"qualityHdr"`
	ReleaseGroup     *string    `json:"releaseGroup"`
	Size             int64      `json:"size"`
	DownloadClientID *int64     `json:"downloadClientId"`
	DownloadID       *string    `json:"downloadId"`
	Status           string     `json:"status"` // grabbed, imported, failed
	ErrorMessage     *string    `json:"errorMessage"`
	GrabbedAt        time.Time  `json:"grabbedAt"`
	ImportedAt       *time.Time `json:"importedAt"`
}


type BlocklistEntry struct {
	ID           int64      `json:"id"`
	MediaID      *int64     `json:"mediaId"`
	MediaType    *string    `json:"mediaType"`
	ReleaseTitle string     `json:"releaseTitle"`
	ReleaseGroup *string    `json:"releaseGroup"`
	IndexerID    *int64     `json:"indexerId"`
	Reason       string     `json:"reason"`
	ErrorMessage *string    `json:"errorMessage"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}


type BlockedGroup struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Reason       *string   `json:"reason"`
	AutoBlocked  bool      `json:"autoBlocked"`
	FailureCount int       `json:"failureCount"`
	CreatedAt    time.Time `json:"createdAt"`
}


type Exclusion struct {
	ID            int64     `json:"id"`
	ExclusionType string    `json:"exclusionType"` // "movie", "show", "indexer"
	MediaID       *int64    `json:"mediaId,omitempty"`
	MediaType     *string   `json:"mediaType,omitempty"`
	IndexerID     *int64    `json:"indexerId,omitempty"`
	LibraryID     *int64    `json:"libraryId,omitempty"`
	Reason        *string   `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}


type ScheduledTask struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	TaskType        string     `json:"taskType"`
	Enabled         bool       `json:"enabled"`
	IntervalMinutes int        `json:"intervalMinutes"`
	LastRun         *time.Time `json:"lastRun"`
	NextRun         *time.Time `json:"nextRun"`
	LastDurationMs  *int64     `json:"lastDurationMs"`
	LastStatus      string     `json:"lastStatus"`
	LastError       *string    `json:"lastError"`
	RunCount        int        `json:"runCount"`
	FailCount       int        `json:"failCount"`
	IsRunning       bool       `json:"isRunning"` // Computed at runtime
}


type TaskHistory struct {
	ID             int64      `json:"id"`
	TaskID         int64      `json:"taskId"`
	TaskName       string     `json:"taskName,omitempty"` // Populated from join
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt"`
	DurationMs     *int64     `json:"durationMs"`
	Status         string     `json:"status"`
	ItemsProcessed int        `json:"itemsProcessed"`
	ItemsFound     int        `json:"itemsFound"`
	Error          *string    `json:"error"`
	Details        *string    `json:"details"`
}


func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	// Set busy timeout to 5 seconds
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		return nil, err
	}

	return d, nil
}


func (d *Database) Close() error {
	return d.db.Close()
}


func (d *Database) migrate() error {
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.Up(d.db, "migrations"); err != nil {
		return err
	}

	// Seed default scheduler and storage-guard settings (INSERT OR IGNORE keeps existing values)
	defaultSettings := map[string]string{
		"scheduler_auto_search": "true",
		"scheduler_rss_enabled": "true",
		"storage_pause_enabled": "false",
		"storage_threshold_gb":  "50",
	}
	for key, value := range defaultSettings {
		d.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
	}

	return nil
}



func (d *Database) CreateLibrary(lib *Library) error {
	result, err := d.db.Exec(
		"INSERT INTO libraries (name, path, type, scan_interval) VALUES (?, ?, ?, ?)",
		lib.Name, lib.Path, lib.Type, lib.ScanInterval,
	)
	if err != nil {
		return err
	}
	lib.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetLibraries() ([]Library, error) {
	rows, err := d.db.Query("SELECT id, name, path, type, scan_interval FROM libraries")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libraries []Library
	for rows.Next() {
		var lib Library
		if err := rows.Scan(&lib.ID, &lib.Name, &lib.Path, &lib.Type, &lib.ScanInterval); err != nil {
			return nil, err
		}
		libraries = append(libraries, lib)
	}
	return libraries, nil
}


func (d *Database) GetSetting(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}


func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}


func (d *Database) GetAllSettings() (map[string]string, error) {
	rows, err := d.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, nil
}


type FormatSettings struct {
	AcceptedContainers []string `json:"acceptedContainers"` // e.g., ["mkv", "mp4", "avi"]
	RejectedKeywords   []string `json:"rejectedKeywords"`   // Keywords to reject (e.g., "bdmv", "rar", "cam")
	AutoBlocklist      bool     `json:"autoBlocklist"`      // Add rejected releases to blocklist
}


func DefaultFormatSettings() *FormatSettings {
	return &FormatSettings{
		AcceptedContainers: []string{"mkv", "mp4", "avi", "mov", "webm", "m4v", "ts", "m2ts", "wmv", "flv"},
		RejectedKeywords: []string{
			// Disc releases
			"bdmv", "video_ts", "iso", "full disc", "complete disc", "disc1", "disc2",
			// Archives
			"rar", "zip", "7z",
			// Low quality captures
			"cam", "camrip", "hdcam", "hdts", "telesync", "telecine", "ts-scr",
			"dvdscr", "dvdscreener", "screener", "scr", "r5", "workprint",
			// Samples
			"sample",
			// 3D (most people don't want)
			"3d", "hsbs", "hou",
		},
		AutoBlocklist: true,
	}
}


func (d *Database) GetFormatSettings() (*FormatSettings, error) {
	value, err := d.GetSetting("format_settings")
	if err != nil {
		// Return defaults if not set
		return DefaultFormatSettings(), nil
	}

	var settings FormatSettings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return DefaultFormatSettings(), nil
	}
	return &settings, nil
}


func (d *Database) SaveFormatSettings(settings *FormatSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return d.SetSetting("format_settings", string(data))
}

// Download client operations

func (d *Database) CreateDownloadClient(client *DownloadClient) error {
	result, err := d.db.Exec(`
		INSERT INTO download_clients (name, type, host, port, username, password, api_key, use_tls, category, priority, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.Name, client.Type, client.Host, client.Port, client.Username, client.Password,
		client.APIKey, client.UseTLS, client.Category, client.Priority, client.Enabled,
	)
	if err != nil {
		return err
	}
	client.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetDownloadClients() ([]DownloadClient, error) {
	rows, err := d.db.Query(`
		SELECT id, name, type, host, port, username, password, api_key, use_tls, category, priority, enabled
		FROM download_clients ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []DownloadClient
	for rows.Next() {
		var c DownloadClient
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Host, &c.Port, &c.Username, &c.Password,
			&c.APIKey, &c.UseTLS, &c.Category, &c.Priority, &c.Enabled); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}


func (d *Database) GetDownloadClient(id int64) (*DownloadClient, error) {
	var c DownloadClient
	err := d.db.QueryRow(`
		SELECT id, name, type, host, port, username, password, api_key, use_tls, category, priority, enabled
		FROM download_clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Type, &c.Host, &c.Port, &c.Username, &c.Password,
		&c.APIKey, &c.UseTLS, &c.Category, &c.Priority, &c.Enabled)
	if err != nil {
		return nil, err
	}
	return &c, nil
}


func (d *Database) UpdateDownloadClient(client *DownloadClient) error {
	_, err := d.db.Exec(`
		UPDATE download_clients SET
			name = ?, type = ?, host = ?, port = ?, username = ?, password = ?,
			api_key = ?, use_tls = ?, category = ?, priority = ?, enabled = ?
		WHERE id = ?`,
		client.Name, client.Type, client.Host, client.Port, client.Username, client.Password,
		client.APIKey, client.UseTLS, client.Category, client.Priority, client.Enabled, client.ID,
	)
	return err
}


func (d *Database) DeleteDownloadClient(id int64) error {
	_, err := d.db.Exec("DELETE FROM download_clients WHERE id = ?", id)
	return err
}


func (d *Database) GetEnabledDownloadClients() ([]DownloadClient, error) {
	rows, err := d.db.Query(`
		SELECT id, name, type, host, port, username, password, api_key, use_tls, category, priority, enabled
		FROM download_clients WHERE enabled = 1 ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []DownloadClient
	for rows.Next() {
		var c DownloadClient
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Host, &c.Port, &c.Username, &c.Password,
			&c.APIKey, &c.UseTLS, &c.Category, &c.Priority, &c.Enabled); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// Indexer operations


func (d *Database) CreateIndexer(indexer *Indexer) error {
	result, err := d.db.Exec(`
		INSERT INTO indexers (name, type, url, api_key, categories, priority, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		indexer.Name, indexer.Type, indexer.URL, indexer.APIKey,
		indexer.Categories, indexer.Priority, indexer.Enabled,
	)
	if err != nil {
		return err
	}
	indexer.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetIndexers() ([]Indexer, error) {
	rows, err := d.db.Query(`
		SELECT id, name, type, url, COALESCE(api_key, ''), COALESCE(categories, ''), priority, enabled,
			COALESCE(prowlarr_id, 0), COALESCE(synced_from_prowlarr, 0), COALESCE(protocol, ''),
			COALESCE(supports_movies, 1), COALESCE(supports_tv, 1), COALESCE(supports_music, 0),
			COALESCE(supports_books, 0), COALESCE(supports_anime, 0), COALESCE(supports_imdb, 0),
			COALESCE(supports_tmdb, 0), COALESCE(supports_tvdb, 0)
		FROM indexers ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexers []Indexer
	for rows.Next() {
		var i Indexer
		var prowlarrID int64
		var syncedFromProwlarr int
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.URL, &i.APIKey,
			&i.Categories, &i.Priority, &i.Enabled,
			&prowlarrID, &syncedFromProwlarr, &i.Protocol,
			&i.SupportsMovies, &i.SupportsTV, &i.SupportsMusic,
			&i.SupportsBooks, &i.SupportsAnime, &i.SupportsIMDB,
			&i.SupportsTMDB, &i.SupportsTVDB); err != nil {
			return nil, err
		}
		if prowlarrID > 0 {
			i.ProwlarrID = &prowlarrID
		}
		i.SyncedFromProwlarr = syncedFromProwlarr == 1
		indexers = append(indexers, i)
	}
	return indexers, nil
}


func (d *Database) GetIndexer(id int64) (*Indexer, error) {
	var i Indexer
	var prowlarrID int64
	var syncedFromProwlarr int
	err := d.db.QueryRow(`
		SELECT id, name, type, url, COALESCE(api_key, ''), COALESCE(categories, ''), priority, enabled,
			COALESCE(prowlarr_id, 0), COALESCE(synced_from_prowlarr, 0), COALESCE(protocol, ''),
			COALESCE(supports_movies, 1), COALESCE(supports_tv, 1), COALESCE(supports_music, 0),
			COALESCE(supports_books, 0), COALESCE(supports_anime, 0), COALESCE(supports_imdb, 0),
			COALESCE(supports_tmdb, 0), COALESCE(supports_tvdb, 0)
		FROM indexers WHERE id = ?`, id,
	).Scan(&i.ID, &i.Name, &i.Type, &i.URL, &i.APIKey,
		&i.Categories, &i.Priority, &i.Enabled,
		&prowlarrID, &syncedFromProwlarr, &i.Protocol,
		&i.SupportsMovies, &i.SupportsTV, &i.SupportsMusic,
		&i.SupportsBooks, &i.SupportsAnime, &i.SupportsIMDB,
		&i.SupportsTMDB, &i.SupportsTVDB)
	if err != nil {
		return nil, err
	}
	if prowlarrID > 0 {
		i.ProwlarrID = &prowlarrID
	}
	i.SyncedFromProwlarr = syncedFromProwlarr == 1
	return &i, nil
}


func (d *Database) UpdateIndexer(indexer *Indexer) error {
	_, err := d.db.Exec(`
		UPDATE indexers SET
			name = ?, type = ?, url = ?, api_key = ?, categories = ?, priority = ?, enabled = ?
		WHERE id = ?`,
		indexer.Name, indexer.Type, indexer.URL, indexer.APIKey,
		indexer.Categories, indexer.Priority, indexer.Enabled, indexer.ID,
	)
	return err
}


func (d *Database) DeleteIndexer(id int64) error {
	_, err := d.db.Exec("DELETE FROM indexers WHERE id = ?", id)
	return err
}


func (d *Database) GetEnabledIndexers() ([]Indexer, error) {
	rows, err := d.db.Query(`
		SELECT id, name, type, url, COALESCE(api_key, ''), COALESCE(categories, ''), priority, enabled,
			COALESCE(prowlarr_id, 0), COALESCE(synced_from_prowlarr, 0), COALESCE(protocol, ''),
			COALESCE(supports_movies, 1), COALESCE(supports_tv, 1), COALESCE(supports_music, 0),
			COALESCE(supports_books, 0), COALESCE(supports_anime, 0), COALESCE(supports_imdb, 0),
			COALESCE(supports_tmdb, 0), COALESCE(supports_tvdb, 0)
		FROM indexers WHERE enabled = 1 ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexers []Indexer
	for rows.Next() {
		var i Indexer
		var prowlarrID int64
		var syncedFromProwlarr int
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.URL, &i.APIKey,
			&i.Categories, &i.Priority, &i.Enabled,
			&prowlarrID, &syncedFromProwlarr, &i.Protocol,
			&i.SupportsMovies, &i.SupportsTV, &i.SupportsMusic,
			&i.SupportsBooks, &i.SupportsAnime, &i.SupportsIMDB,
			&i.SupportsTMDB, &i.SupportsTVDB); err != nil {
			return nil, err
		}
		if prowlarrID > 0 {
			i.ProwlarrID = &prowlarrID
		}
		i.SyncedFromProwlarr = syncedFromProwlarr == 1
		indexers = append(indexers, i)
	}
	return indexers, nil
}

// Wanted item operations

func (d *Database) CreateWantedItem(item *WantedItem) error {
	result, err := d.db.Exec(`
		INSERT INTO wanted (type, tmdb_id, imdb_id, title, year, poster_path, quality_profile_id, quality_preset_id, monitored, seasons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Type, item.TmdbID, item.ImdbID, item.Title, item.Year, item.PosterPath,
		item.QualityProfileID, item.QualityPresetID, item.Monitored, item.Seasons,
	)
	if err != nil {
		return err
	}
	item.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetWantedItems() ([]WantedItem, error) {
	rows, err := d.db.Query(`
		SELECT id, type, tmdb_id, imdb_id, title, year, poster_path, quality_profile_id, quality_preset_id, monitored, seasons, last_searched, added_at
		FROM wanted ORDER BY added_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WantedItem
	for rows.Next() {
		var item WantedItem
		if err := rows.Scan(&item.ID, &item.Type, &item.TmdbID, &item.ImdbID, &item.Title, &item.Year,
			&item.PosterPath, &item.QualityProfileID, &item.QualityPresetID, &item.Monitored, &item.Seasons,
			&item.LastSearched, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}


func (d *Database) GetWantedItem(id int64) (*WantedItem, error) {
	var item WantedItem
	err := d.db.QueryRow(`
		SELECT id, type, tmdb_id, imdb_id, title, year, poster_path, quality_profile_id, quality_preset_id, monitored, seasons, last_searched, added_at
		FROM wanted WHERE id = ?`, id,
	).Scan(&item.ID, &item.Type, &item.TmdbID, &item.ImdbID, &item.Title, &item.Year,
		&item.PosterPath, &item.QualityProfileID, &item.QualityPresetID, &item.Monitored, &item.Seasons,
		&item.LastSearched, &item.AddedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}


func (d *Database) GetWantedByTmdb(itemType string, tmdbID int64) (*WantedItem, error) {
	var item WantedItem
	err := d.db.QueryRow(`
		SELECT id, type, tmdb_id, imdb_id, title, year, poster_path, quality_profile_id, quality_preset_id, monitored, seasons, last_searched, added_at
		FROM wanted WHERE type = ? AND tmdb_id = ?`, itemType, tmdbID,
	).Scan(&item.ID, &item.Type, &item.TmdbID, &item.ImdbID, &item.Title, &item.Year,
		&item.PosterPath, &item.QualityProfileID, &item.QualityPresetID, &item.Monitored, &item.Seasons,
		&item.LastSearched, &item.AddedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}


func (d *Database) GetMonitoredItems() ([]WantedItem, error) {
	rows, err := d.db.Query(`
		SELECT id, type, tmdb_id, imdb_id, title, year, poster_path, quality_profile_id, quality_preset_id, monitored, seasons, last_searched, added_at
		FROM wanted WHERE monitored = 1 ORDER BY added_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WantedItem
	for rows.Next() {
		var item WantedItem
		if err := rows.Scan(&item.ID, &item.Type, &item.TmdbID, &item.ImdbID, &item.Title, &item.Year,
			&item.PosterPath, &item.QualityProfileID, &item.QualityPresetID, &item.Monitored, &item.Seasons,
			&item.LastSearched, &item.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}


func (d *Database) UpdateWantedItem(item *WantedItem) error {
	_, err := d.db.Exec(`
		UPDATE wanted SET
			quality_profile_id = ?, quality_preset_id = ?, monitored = ?, seasons = ?
		WHERE id = ?`,
		item.QualityProfileID, item.QualityPresetID, item.Monitored, item.Seasons, item.ID,
	)
	return err
}


func (d *Database) UpdateWantedLastSearched(id int64) error {
	_, err := d.db.Exec("UPDATE wanted SET last_searched = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}


func (d *Database) DeleteWantedItem(id int64) error {
	_, err := d.db.Exec("DELETE FROM wanted WHERE id = ?", id)
	return err
}

// Request operations


func (d *Database) CreateRequest(req *Request) error {
	result, err := d.db.Exec(`
		INSERT INTO requests (user_id, type, tmdb_id, title, year, overview, poster_path, backdrop_path, quality_profile_id, quality_preset_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.UserID, req.Type, req.TmdbID, req.Title, req.Year, req.Overview, req.PosterPath, req.BackdropPath, req.QualityProfileID, req.QualityPresetID, "requested",
	)
	if err != nil {
		return err
	}
	req.ID, _ = result.LastInsertId()
	req.Status = "requested"
	req.RequestedAt = time.Now()
	req.UpdatedAt = time.Now()
	return nil
}


func (d *Database) GetRequest(id int64) (*Request, error) {
	var req Request
	err := d.db.QueryRow(`
		SELECT r.id, r.user_id, r.type, r.tmdb_id, r.title, r.year, r.overview,
		       r.poster_path, r.backdrop_path, r.quality_profile_id, r.quality_preset_id, r.status, r.status_reason, r.requested_at, r.updated_at
		FROM requests r
		WHERE r.id = ?`, id).Scan(&req.ID, &req.UserID, &req.Type, &req.TmdbID,
		&req.Title, &req.Year, &req.Overview, &req.PosterPath, &req.BackdropPath, &req.QualityProfileID, &req.QualityPresetID,
		&req.Status, &req.StatusReason, &req.RequestedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}


func (d *Database) GetRequestByTmdb(userID int64, mediaType string, tmdbID int64) (*Request, error) {
	var req Request
	err := d.db.QueryRow(`
		SELECT r.id, r.user_id, r.type, r.tmdb_id, r.title, r.year, r.overview,
		       r.poster_path, r.backdrop_path, r.quality_profile_id, r.quality_preset_id, r.status, r.status_reason, r.requested_at, r.updated_at
		FROM requests r
		WHERE r.user_id = ? AND r.type = ? AND r.tmdb_id = ?`,
		userID, mediaType, tmdbID).Scan(&req.ID, &req.UserID, &req.Type, &req.TmdbID,
		&req.Title, &req.Year, &req.Overview, &req.PosterPath, &req.BackdropPath, &req.QualityProfileID, &req.QualityPresetID,
		&req.Status, &req.StatusReason, &req.RequestedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}


func (d *Database) UpdateRequestStatus(id int64, status string, reason *string) error {
	_, err := d.db.Exec(`
		UPDATE requests
		SET status = ?, status_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, status, reason, id)
	return err
}


func (d *Database) DeleteRequest(id int64) error {
	_, err := d.db.Exec("DELETE FROM requests WHERE id = ?", id)
	return err
}


func (d *Database) CreateImportHistory(ih *ImportHistory) error {
	result, err := d.db.Exec(`
		INSERT INTO import_history (download_id, source_path, dest_path, media_id, media_type, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ih.DownloadID, ih.SourcePath, ih.DestPath, ih.MediaID, ih.MediaType, ih.Success, ih.Error)
	if err != nil {
		return err
	}
	ih.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetImportHistory(limit int) ([]ImportHistory, error) {
	rows, err := d.db.Query(`
		SELECT id, download_id, source_path, dest_path, media_id, media_type, success, error, created_at
		FROM import_history ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []ImportHistory
	for rows.Next() {
		var ih ImportHistory
		var success int
		if err := rows.Scan(&ih.ID, &ih.DownloadID, &ih.SourcePath, &ih.DestPath,
			&ih.MediaID, &ih.MediaType, &success, &ih.Error, &ih.CreatedAt); err != nil {
			return nil, err
		}
		ih.Success = success == 1
		history = append(history, ih)
	}
	return history, nil
}

// Media Quality Status operations


func (d *Database) GetMediaQualityStatus(mediaID int64, mediaType string) (*MediaQualityStatus, error) {
	var s MediaQualityStatus
	var targetMet, upgradeAvailable int
	err := d.db.QueryRow(`
		SELECT id, media_id, media_type, current_resolution, current_source,
		       current_hdr, current_audio, current_edition, target_met,
		       upgrade_available, last_search, created_at, updated_at
		FROM media_quality_status WHERE media_id = ? AND media_type = ?
	`, mediaID, mediaType).Scan(
		&s.ID, &s.MediaID, &s.MediaType, &s.CurrentResolution, &s.CurrentSource,
		&s.CurrentHDR, &s.CurrentAudio, &s.CurrentEdition, &targetMet,
		&upgradeAvailable, &s.LastSearch, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // No status record exists yet
	}
	if err != nil {
		return nil, err
	}
	s.TargetMet = targetMet == 1
	s.UpgradeAvailable = upgradeAvailable == 1
	return &s, nil
}


func (d *Database) UpsertMediaQualityStatus(s *MediaQualityStatus) error {
	_, err := d.db.Exec(`
		INSERT INTO media_quality_status (media_id, media_type, current_resolution, current_source,
		                                  current_hdr, current_audio, current_edition, target_met,
		                                  upgrade_available, last_search)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(media_id, media_type) DO UPDATE SET
			current_resolution = excluded.current_resolution,
			current_source = excluded.current_source,
			current_hdr = excluded.current_hdr,
			current_audio = excluded.current_audio,
			current_edition = excluded.current_edition,
			target_met = excluded.target_met,
			upgrade_available = excluded.upgrade_available,
			last_search = excluded.last_search,
			updated_at = CURRENT_TIMESTAMP
	`, s.MediaID, s.MediaType, s.CurrentResolution, s.CurrentSource,
		s.CurrentHDR, s.CurrentAudio, s.CurrentEdition, s.TargetMet,
		s.UpgradeAvailable, s.LastSearch)
	return err
}


func (d *Database) AddToBlocklist(entry *BlocklistEntry) error {
	result, err := d.db.Exec(`
		INSERT INTO blocklist (media_id, media_type, release_title, release_group, indexer_id, reason, error_message, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.MediaID, entry.MediaType, entry.ReleaseTitle, entry.ReleaseGroup,
		entry.IndexerID, entry.Reason, entry.ErrorMessage, entry.ExpiresAt)
	if err != nil {
		return err
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetBlocklist() ([]BlocklistEntry, error) {
	rows, err := d.db.Query(`
		SELECT id, media_id, media_type, release_title, release_group, indexer_id, reason, error_message, expires_at, created_at
		FROM blocklist
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []BlocklistEntry
	for rows.Next() {
		var e BlocklistEntry
		if err := rows.Scan(&e.ID, &e.MediaID, &e.MediaType, &e.ReleaseTitle, &e.ReleaseGroup,
			&e.IndexerID, &e.Reason, &e.ErrorMessage, &e.ExpiresAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}


func (d *Database) IsReleaseBlocklisted(releaseTitle string) (bool, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM blocklist
		WHERE release_title = ? AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	`, releaseTitle).Scan(&count)
	return count > 0, err
}


func (d *Database) RemoveFromBlocklist(id int64) error {
	_, err := d.db.Exec("DELETE FROM blocklist WHERE id = ?", id)
	return err
}


func (d *Database) ClearExpiredBlocklist() error {
	_, err := d.db.Exec("DELETE FROM blocklist WHERE expires_at IS NOT NULL AND expires_at <= CURRENT_TIMESTAMP")
	return err
}

// =====================
// Grab History Operations
// =====================


func (d *Database) AddGrabHistory(h *GrabHistory) error {
	result, err := d.db.Exec(`
		INSERT INTO grab_history (media_id, media_type, release_title, indexer_id, indexer_name,
			quality_resolution, quality_source, quality_codec, quality_audio, quality_hdr,
			release_group, size, download_client_id, download_id, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.MediaID, h.MediaType, h.ReleaseTitle, h.IndexerID, h.IndexerName,
		h.QualityResolution, h.QualitySource, h.QualityCodec, h.QualityAudio, h.QualityHDR,
		h.ReleaseGroup, h.Size, h.DownloadClientID, h.DownloadID, h.Status, h.ErrorMessage)
	if err != nil {
		return err
	}
	h.ID, _ = result.LastInsertId()
	return nil
}


func (d *Database) GetGrabHistory(limit int) ([]GrabHistory, error) {
	rows, err := d.db.Query(`
		SELECT id, media_id, media_type, release_title, indexer_id, indexer_name,
			quality_resolution, quality_source, quality_codec, quality_audio, quality_hdr,
			release_group, size, download_client_id, download_id, status, error_message, grabbed_at, imported_at
		FROM grab_history
		ORDER BY grabbed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []GrabHistory
	for rows.Next() {
		var h GrabHistory
		if err := rows.Scan(&h.ID, &h.MediaID, &h.MediaType, &h.ReleaseTitle, &h.IndexerID, &h.IndexerName,
			&h.QualityResolution, &h.QualitySource, &h.QualityCodec, &h.QualityAudio, &h.QualityHDR,
			&h.ReleaseGroup, &h.Size, &h.DownloadClientID, &h.DownloadID, &h.Status, &h.ErrorMessage,
			&h.GrabbedAt, &h.ImportedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, nil
}


func (d *Database) GetGrabHistoryForMedia(mediaID int64, mediaType string) ([]GrabHistory, error) {
	rows, err := d.db.Query(`
		SELECT id, media_id, media_type, release_title, indexer_id, indexer_name,
			quality_resolution, quality_source, quality_codec, quality_audio, quality_hdr,
			release_group, size, download_client_id, download_id, status, error_message, grabbed_at, imported_at
		FROM grab_history
		WHERE media_id = ? AND media_type = ?
		ORDER BY grabbed_at DESC
	`, mediaID, mediaType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []GrabHistory
	for rows.Next() {
		var h GrabHistory
		if err := rows.Scan(&h.ID, &h.MediaID, &h.MediaType, &h.ReleaseTitle, &h.IndexerID, &h.IndexerName,
			&h.QualityResolution, &h.QualitySource, &h.QualityCodec, &h.QualityAudio, &h.QualityHDR,
			&h.ReleaseGroup, &h.Size, &h.DownloadClientID, &h.DownloadID, &h.Status, &h.ErrorMessage,
			&h.GrabbedAt, &h.ImportedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, nil
}


func (d *Database) UpdateGrabHistoryStatus(id int64, status string, errorMsg *string) error {
	if status == "imported" {
		_, err := d.db.Exec(`
			UPDATE grab_history SET status = ?, error_message = ?, imported_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, status, errorMsg, id)
		return err
	}
	_, err := d.db.Exec("UPDATE grab_history SET status = ?, error_message = ? WHERE id = ?", status, errorMsg, id)
	return err
}


func (d *Database) UpdateGrabHistoryByTitle(releaseTitle string, status string, errorMsg *string) error {
	if status == "imported" {
		_, err := d.db.Exec(`
			UPDATE grab_history SET status = ?, error_message = ?, imported_at = CURRENT_TIMESTAMP
			WHERE id = (
				SELECT id FROM grab_history
				WHERE release_title = ? AND status = 'grabbed'
				ORDER BY grabbed_at DESC LIMIT 1
			)
		`, status, errorMsg, releaseTitle)
		return err
	}
	_, err := d.db.Exec(`
		UPDATE grab_history SET status = ?, error_message = ?
		WHERE id = (
			SELECT id FROM grab_history
			WHERE release_title = ? AND status = 'grabbed'
			ORDER BY grabbed_at DESC LIMIT 1
		)
	`, status, errorMsg, releaseTitle)
	return err
}
// =====================
// Blocked Groups Operations
// =====================


func (d *Database) GetBlockedGroups() ([]BlockedGroup, error) {
	rows, err := d.db.Query(`
		SELECT id, name, reason, auto_blocked, failure_count, created_at
		FROM blocked_groups
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []BlockedGroup
	for rows.Next() {
		var g BlockedGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Reason, &g.AutoBlocked, &g.FailureCount, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}


func (d *Database) AddBlockedGroup(name, reason string, autoBlocked bool) error {
	_, err := d.db.Exec(`
		INSERT INTO blocked_groups (name, reason, auto_blocked, failure_count)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(name) DO UPDATE SET reason = excluded.reason, auto_blocked = excluded.auto_blocked
	`, name, reason, autoBlocked)
	return err
}


func (d *Database) IncrementGroupFailures(name string) error {
	_, err := d.db.Exec(`
		INSERT INTO blocked_groups (name, auto_blocked, failure_count)
		VALUES (?, 1, 1)
		ON CONFLICT(name) DO UPDATE SET failure_count = failure_count + 1
	`, name)
	return err
}


func (d *Database) RemoveBlockedGroup(id int64) error {
	_, err := d.db.Exec("DELETE FROM blocked_groups WHERE id = ?", id)
	return err
}


func (d *Database) IsGroupBlocked(name string) (bool, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM blocked_groups WHERE name = ?", name).Scan(&count)
	return count > 0, err
}

// =====================
// Exclusion Operations
// =====================

func (d *Database) GetExclusions() ([]Exclusion, error) {
	rows, err := d.db.Query(`
		SELECT id, exclusion_type, media_id, media_type, indexer_id, library_id, reason, created_at
		FROM exclusions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exclusions []Exclusion
	for rows.Next() {
		var e Exclusion
		if err := rows.Scan(&e.ID, &e.ExclusionType, &e.MediaID, &e.MediaType,
			&e.IndexerID, &e.LibraryID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, nil
}


func (d *Database) GetExclusionsByType(exclusionType string) ([]Exclusion, error) {
	rows, err := d.db.Query(`
		SELECT id, exclusion_type, media_id, media_type, indexer_id, library_id, reason, created_at
		FROM exclusions WHERE exclusion_type = ? ORDER BY created_at DESC`, exclusionType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exclusions []Exclusion
	for rows.Next() {
		var e Exclusion
		if err := rows.Scan(&e.ID, &e.ExclusionType, &e.MediaID, &e.MediaType,
			&e.IndexerID, &e.LibraryID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, nil
}


func (d *Database) AddExclusion(e *Exclusion) error {
	result, err := d.db.Exec(`
		INSERT INTO exclusions (exclusion_type, media_id, media_type, indexer_id, library_id, reason)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ExclusionType, e.MediaID, e.MediaType, e.IndexerID, e.LibraryID, e.Reason)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}


func (d *Database) RemoveExclusion(id int64) error {
	_, err := d.db.Exec("DELETE FROM exclusions WHERE id = ?", id)
	return err
}


func (d *Database) IsMediaExcluded(mediaID int64, mediaType string) (bool, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM exclusions
		WHERE media_id = ? AND media_type = ?`, mediaID, mediaType).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}


func (d *Database) GetAllTasks() ([]ScheduledTask, error) {
	rows, err := d.db.Query(`
		SELECT id, name, COALESCE(description, ''), task_type, enabled, interval_minutes,
		       last_run, next_run, last_duration_ms, COALESCE(last_status, ''), last_error,
		       run_count, fail_count
		FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []ScheduledTask
	for rows.Next() {
		var t ScheduledTask
		var lastRun, nextRun sql.NullString
		var lastDurationMs sql.NullInt64
		err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.TaskType, &t.Enabled,
			&t.IntervalMinutes, &lastRun, &nextRun, &lastDurationMs,
			&t.LastStatus, &t.LastError, &t.RunCount, &t.FailCount)
		if err != nil {
			return nil, err
		}
		if lastRun.Valid {
			if parsed, err := time.Parse("2006-01-02 15:04:05", lastRun.String); err == nil {
				t.LastRun = &parsed
			}
		}
		if nextRun.Valid {
			if parsed, err := time.Parse("2006-01-02 15:04:05", nextRun.String); err == nil {
				t.NextRun = &parsed
			}
		}
		if lastDurationMs.Valid {
			t.LastDurationMs = &lastDurationMs.Int64
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}


func (d *Database) GetTask(id int64) (*ScheduledTask, error) {
	var t ScheduledTask
	var lastRun, nextRun sql.NullString
	var lastDurationMs sql.NullInt64
	err := d.db.QueryRow(`
		SELECT id, name, COALESCE(description, ''), task_type, enabled, interval_minutes,
		       last_run, next_run, last_duration_ms, COALESCE(last_status, ''), last_error,
		       run_count, fail_count
		FROM scheduled_tasks WHERE id = ?`, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.TaskType, &t.Enabled,
		&t.IntervalMinutes, &lastRun, &nextRun, &lastDurationMs,
		&t.LastStatus, &t.LastError, &t.RunCount, &t.FailCount)
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		if parsed, err := time.Parse("2006-01-02 15:04:05", lastRun.String); err == nil {
			t.LastRun = &parsed
		}
	}
	if nextRun.Valid {
		if parsed, err := time.Parse("2006-01-02 15:04:05", nextRun.String); err == nil {
			t.NextRun = &parsed
		}
	}
	if lastDurationMs.Valid {
		t.LastDurationMs = &lastDurationMs.Int64
	}
	return &t, nil
}


func (d *Database) GetTaskByName(name string) (*ScheduledTask, error) {
	var t ScheduledTask
	var lastRun, nextRun sql.NullString
	var lastDurationMs sql.NullInt64
	err := d.db.QueryRow(`
		SELECT id, name, COALESCE(description, ''), task_type, enabled, interval_minutes,
		       last_run, next_run, last_duration_ms, COALESCE(last_status, ''), last_error,
		       run_count, fail_count
		FROM scheduled_tasks WHERE name = ?`, name).Scan(
		&t.ID, &t.Name, &t.Description, &t.TaskType, &t.Enabled,
		&t.IntervalMinutes, &lastRun, &nextRun, &lastDurationMs,
		&t.LastStatus, &t.LastError, &t.RunCount, &t.FailCount)
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		if parsed, err := time.Parse("2006-01-02 15:04:05", lastRun.String); err == nil {
			t.LastRun = &parsed
		}
	}
	if nextRun.Valid {
		if parsed, err := time.Parse("2006-01-02 15:04:05", nextRun.String); err == nil {
			t.NextRun = &parsed
		}
	}
	if lastDurationMs.Valid {
		t.LastDurationMs = &lastDurationMs.Int64
	}
	return &t, nil
}


func (d *Database) UpsertTask(task *ScheduledTask) error {
	result, err := d.db.Exec(`
		INSERT INTO scheduled_tasks (name, description, task_type, enabled, interval_minutes, next_run)
		VALUES (?, ?, ?, ?, ?, datetime('now', '+' || ? || ' minutes'))
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			task_type = excluded.task_type
		WHERE scheduled_tasks.name = excluded.name`,
		task.Name, task.Description, task.TaskType, task.Enabled, task.IntervalMinutes, task.IntervalMinutes)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	if id > 0 {
		task.ID = id
	}
	return nil
}


func (d *Database) UpdateTask(task *ScheduledTask) error {
	_, err := d.db.Exec(`
		UPDATE scheduled_tasks SET
			enabled = ?,
			interval_minutes = ?,
			next_run = CASE WHEN enabled = 1 THEN datetime('now', '+' || ? || ' minutes') ELSE next_run END
		WHERE id = ?`,
		task.Enabled, task.IntervalMinutes, task.IntervalMinutes, task.ID)
	return err
}


func (d *Database) UpdateTaskStats(taskID int64, status string, durationMs int64, errorMsg *string) error {
	failIncrement := 0
	if status == "failed" {
		failIncrement = 1
	}
	_, err := d.db.Exec(`
		UPDATE scheduled_tasks SET
			last_run = datetime('now'),
			next_run = datetime('now', '+' || interval_minutes || ' minutes'),
			last_duration_ms = ?,
			last_status = ?,
			last_error = ?,
			run_count = run_count + 1,
			fail_count = fail_count + ?
		WHERE id = ?`,
		durationMs, status, errorMsg, failIncrement, taskID)
	return err
}


func (d *Database) RecordTaskRun(taskID int64, startedAt, finishedAt time.Time, status string, itemsProcessed, itemsFound int, errorMsg *string, details *string) error {
	durationMs := finishedAt.Sub(startedAt).Milliseconds()
	_, err := d.db.Exec(`
		INSERT INTO task_history (task_id, started_at, finished_at, duration_ms, status, items_processed, items_found, error, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskID, startedAt, finishedAt, durationMs, status, itemsProcessed, itemsFound, errorMsg, details)
	return err
}


func (d *Database) GetTaskHistory(taskID int64, limit int) ([]TaskHistory, error) {
	rows, err := d.db.Query(`
		SELECT h.id, h.task_id, t.name, h.started_at, h.finished_at, h.duration_ms,
		       h.status, h.items_processed, h.items_found, h.error, h.details
		FROM task_history h
		JOIN scheduled_tasks t ON h.task_id = t.id
		WHERE h.task_id = ?
		ORDER BY h.started_at DESC LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []TaskHistory
	for rows.Next() {
		var h TaskHistory
		err := rows.Scan(&h.ID, &h.TaskID, &h.TaskName, &h.StartedAt, &h.FinishedAt,
			&h.DurationMs, &h.Status, &h.ItemsProcessed, &h.ItemsFound, &h.Error, &h.Details)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, nil
}


func (d *Database) GetAllTaskHistory(limit int) ([]TaskHistory, error) {
	rows, err := d.db.Query(`
		SELECT h.id, h.task_id, t.name, h.started_at, h.finished_at, h.duration_ms,
		       h.status, h.items_processed, h.items_found, h.error, h.details
		FROM task_history h
		JOIN scheduled_tasks t ON h.task_id = t.id
		ORDER BY h.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []TaskHistory
	for rows.Next() {
		var h TaskHistory
		err := rows.Scan(&h.ID, &h.TaskID, &h.TaskName, &h.StartedAt, &h.FinishedAt,
			&h.DurationMs, &h.Status, &h.ItemsProcessed, &h.ItemsFound, &h.Error, &h.Details)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, nil
}


func (d *Database) CleanupTaskHistory(daysToKeep int) error {
	_, err := d.db.Exec(`
		DELETE FROM task_history
		WHERE started_at < datetime('now', '-' || ? || ' days')`, daysToKeep)
	return err
}

