package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/candle-listing-bot/internal/attributes"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Product is a saved listing in a user's catalog.
type Product struct {
	ID         string
	TelegramID int64
	Source     string
	Record     attributes.AttributeRecord
	CreatedAt  time.Time
}

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// UserSettings holds per-user preferences. Empty fields mean "use the default".
type UserSettings struct {
	TelegramID int64
	Mode       string
	Language   string
}

// Store defines the persistence operations used by the bot and the
// suggestion service.
type Store interface {
	Close() error

	// Analysis cache, keyed by image fingerprint and pipeline source
	GetAnalysisCache(imageHash, source string) ([]byte, error)
	SetAnalysisCache(imageHash, source string, payload []byte) error
	PruneAnalysisCache(olderThan time.Duration) (int64, error)

	// Product catalog
	SaveProduct(telegramID int64, source string, record attributes.AttributeRecord) (*Product, error)
	GetProduct(id string) (*Product, error)
	ListProducts(telegramID int64, limit int) ([]Product, error)
	DeleteProduct(telegramID int64, id string) (bool, error)

	// Allowed users
	IsUserAllowed(telegramID int64) (bool, error)
	AddAllowedUser(telegramID, addedBy int64) error
	RemoveAllowedUser(telegramID int64) error
	GetAllowedUsers() ([]AllowedUser, error)

	// User settings
	GetUserSettings(telegramID int64) (*UserSettings, error)
	SetUserMode(telegramID int64, mode string) error
	SetUserLanguage(telegramID int64, language string) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath. ":memory:" gives a
// private in-memory database, which is what the tests use.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode and busy timeout for concurrent readers
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", dbPath).Msg("failed to restrict database permissions")
	}

	store := &SQLiteStore{db: db}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	tables := []struct {
		name  string
		query string
	}{
		{"analysis_cache", `
		CREATE TABLE IF NOT EXISTS analysis_cache (
			image_hash TEXT NOT NULL,
			source TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (image_hash, source)
		);`},
		{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			telegram_id INTEGER NOT NULL,
			source TEXT NOT NULL,
			type TEXT NOT NULL,
			color TEXT NOT NULL,
			style TEXT NOT NULL,
			is_set INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			sku TEXT NOT NULL,
			price REAL NOT NULL,
			created_at DATETIME NOT NULL
		);`},
		{"products index", `
		CREATE INDEX IF NOT EXISTS idx_products_telegram_id ON products (telegram_id, created_at);`},
		{"allowed_users", `
		CREATE TABLE IF NOT EXISTS allowed_users (
			telegram_id INTEGER PRIMARY KEY,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			added_by INTEGER
		);`},
		{"user_settings", `
		CREATE TABLE IF NOT EXISTS user_settings (
			telegram_id INTEGER PRIMARY KEY,
			mode TEXT,
			language TEXT
		);`},
	}

	for _, t := range tables {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", t.name, err)
		}
	}

	// Migration: language column was added after mode
	if _, err := s.db.Exec("ALTER TABLE user_settings ADD COLUMN language TEXT"); err != nil {
		if !strings.Contains(err.Error(), "duplicate column name") {
			log.Warn().Err(err).Msg("failed to add language column (migration)")
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAnalysisCache returns the cached payload for an image and pipeline.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetAnalysisCache(imageHash, source string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(
		"SELECT payload FROM analysis_cache WHERE image_hash = ? AND source = ?",
		imageHash, source,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	return []byte(payload), nil
}

// SetAnalysisCache stores a payload, replacing any previous one.
func (s *SQLiteStore) SetAnalysisCache(imageHash, source string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO analysis_cache (image_hash, source, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(image_hash, source) DO UPDATE SET
			payload = excluded.payload,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, source, string(payload))

	if err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// PruneAnalysisCache removes cache entries older than the given duration.
func (s *SQLiteStore) PruneAnalysisCache(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	modifier := fmt.Sprintf("-%d seconds", int64(olderThan.Seconds()))
	result, err := s.db.Exec(`DELETE FROM analysis_cache WHERE created_at < datetime('now', ?)`, modifier)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analysis cache: %w", err)
	}

	return result.RowsAffected()
}

// SaveProduct adds a record to the user's catalog under a new ID.
func (s *SQLiteStore) SaveProduct(telegramID int64, source string, record attributes.AttributeRecord) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Product{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		Source:     source,
		Record:     record,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO products (id, telegram_id, source, type, color, style, is_set, title, description, sku, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, telegramID, source,
		string(record.Type), record.Color, string(record.Style), record.IsSet,
		record.Title, record.Description, record.SKU, record.Price, p.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	return p, nil
}

const productColumns = "id, telegram_id, source, type, color, style, is_set, title, description, sku, price, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var typ, style string
	err := row.Scan(&p.ID, &p.TelegramID, &p.Source,
		&typ, &p.Record.Color, &style, &p.Record.IsSet,
		&p.Record.Title, &p.Record.Description, &p.Record.SKU, &p.Record.Price, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Record.Type = attributes.CandleType(typ)
	p.Record.Style = attributes.Style(style)
	return &p, nil
}

// GetProduct retrieves a product by ID.
// Returns nil, nil if the product doesn't exist.
func (s *SQLiteStore) GetProduct(id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanProduct(s.db.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// ListProducts returns the user's most recent products first. A limit of
// zero or less returns all of them.
func (s *SQLiteStore) ListProducts(telegramID int64, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT "+productColumns+" FROM products WHERE telegram_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		telegramID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// DeleteProduct removes one of the user's products. It reports whether a
// product was deleted; other users' products are never touched.
func (s *SQLiteStore) DeleteProduct(telegramID int64, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM products WHERE id = ? AND telegram_id = ?", id, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return n > 0, nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at, telegram_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// GetUserSettings retrieves a user's settings.
// Returns nil, nil if the user has never changed a setting.
func (s *SQLiteStore) GetUserSettings(telegramID int64) (*UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mode, language sql.NullString
	err := s.db.QueryRow(
		"SELECT mode, language FROM user_settings WHERE telegram_id = ?",
		telegramID,
	).Scan(&mode, &language)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user settings: %w", err)
	}

	return &UserSettings{
		TelegramID: telegramID,
		Mode:       mode.String,
		Language:   language.String,
	}, nil
}

// SetUserMode sets the analysis mode for a user.
func (s *SQLiteStore) SetUserMode(telegramID int64, mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO user_settings (telegram_id, mode)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			mode = excluded.mode;
	`, telegramID, mode)
	if err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}
	return nil
}

// SetUserLanguage sets the listing language for a user. An empty language
// turns translation off.
func (s *SQLiteStore) SetUserLanguage(telegramID int64, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO user_settings (telegram_id, language)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			language = excluded.language;
	`, telegramID, language)
	if err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}
	return nil
}
