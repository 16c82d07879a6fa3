package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	_ "modernc.org/sqlite"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

var _ TranslationStore = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS paths always use forward slashes.
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
		log.Debug("applied migration %s", entry.Name())
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// PutTranslation stores entry under its title, replacing any earlier entry.
// Pair order is preserved.
func (s *SQLiteStore) PutTranslation(ctx context.Context, entry TranslationEntry) error {
	if strings.TrimSpace(entry.Title) == "" {
		return errs.New(errs.KindValidation, "title is required")
	}
	if entry.Map == nil {
		return errs.New(errs.KindValidation, "translation map is nil")
	}

	pairs := entry.Map.Pairs()
	payload, err := json.Marshal(pairs)
	if err != nil {
		return errs.Storage(err, "put")
	}
	updatedAt := entry.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	createdAt := entry.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO translations (
			title, provider, target_lang, pairs_json, line_count, translated_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			provider=excluded.provider,
			target_lang=excluded.target_lang,
			pairs_json=excluded.pairs_json,
			line_count=excluded.line_count,
			translated_count=excluded.translated_count,
			updated_at=excluded.updated_at`,
		entry.Title,
		entry.Provider,
		entry.TargetLanguage.String(),
		string(payload),
		len(pairs),
		entry.Map.Translated(),
		createdAt,
		updatedAt,
	)
	if err != nil {
		return errs.Storage(err, "put").WithContext("title", entry.Title)
	}
	return nil
}

func (s *SQLiteStore) GetTranslation(ctx context.Context, title string) (TranslationEntry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT title, provider, target_lang, pairs_json, created_at, updated_at
		 FROM translations
		 WHERE title = ?`,
		title,
	)

	var entry TranslationEntry
	var targetLang string
	var pairsJSON string
	if err := row.Scan(&entry.Title, &entry.Provider, &targetLang, &pairsJSON, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TranslationEntry{}, false, nil
		}
		return TranslationEntry{}, false, errs.Storage(err, "get").WithContext("title", title)
	}

	var pairs []transcript.Pair
	if err := json.Unmarshal([]byte(pairsJSON), &pairs); err != nil {
		return TranslationEntry{}, false, errs.Storage(err, "decode").WithContext("title", title)
	}
	tag, err := language.Parse(targetLang)
	if err != nil {
		tag = language.Und
	}
	entry.TargetLanguage = tag
	entry.Map = transcript.MapFromPairs(pairs)
	return entry, true, nil
}

// ListTranslations returns summaries, most recently updated first.
func (s *SQLiteStore) ListTranslations(ctx context.Context) ([]TranslationSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT title, provider, target_lang, line_count, translated_count, updated_at
		 FROM translations
		 ORDER BY updated_at DESC, title ASC`,
	)
	if err != nil {
		return nil, errs.Storage(err, "list")
	}
	defer rows.Close()

	ret := make([]TranslationSummary, 0)
	for rows.Next() {
		var item TranslationSummary
		if err := rows.Scan(
			&item.Title,
			&item.Provider,
			&item.TargetLanguage,
			&item.LineCount,
			&item.TranslatedCount,
			&item.UpdatedAt,
		); err != nil {
			return nil, errs.Storage(err, "list")
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(err, "list")
	}
	return ret, nil
}

// DeleteTranslation removes the entry for title and reports whether it existed.
func (s *SQLiteStore) DeleteTranslation(ctx context.Context, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE title = ?`, title)
	if err != nil {
		return false, errs.Storage(err, "delete").WithContext("title", title)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Storage(err, "delete")
	}
	return n > 0, nil
}

// Maintain folds the WAL back into the database file and refreshes planner
// statistics. It is run periodically by the bridge.
func (s *SQLiteStore) Maintain(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return errs.Storage(err, "checkpoint")
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errs.Storage(err, "optimize")
	}
	return nil
}
