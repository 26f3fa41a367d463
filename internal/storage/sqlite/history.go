// Package sqlite хранит журнал публикаций в SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
)

const historyTable = "post_history"

// HistoryStore - журнал публикаций в таблице post_history.
type HistoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open открывает (или создаёт) базу и применяет миграции.
func Open(path string, logger *slog.Logger) (*HistoryStore, error) {
	logger = logging.OrDefault(logger)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Один писатель на процесс, SQLite не любит параллельные соединения на запись.
	db.SetMaxOpenConns(1)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("post history schema ready", "path", path, "version", version, "dirty", dirty)

	return &HistoryStore{db: db, logger: logger}, nil
}

// Append добавляет запись в журнал.
func (s *HistoryStore) Append(ctx context.Context, entry manga.PostHistoryEntry) error {
	query, args, err := sq.Insert(historyTable).
		Columns("title", "post_text", "tweet_id", "posted_at").
		Values(entry.Title, entry.PostText, entry.TweetID, entry.Timestamp.Unix()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert post history: %w", err)
	}
	return nil
}

// Since возвращает записи не старше since в порядке добавления.
func (s *HistoryStore) Since(ctx context.Context, since time.Time) ([]manga.PostHistoryEntry, error) {
	query, args, err := sq.Select("title", "post_text", "tweet_id", "posted_at").
		From(historyTable).
		Where(sq.GtOrEq{"posted_at": since.Unix()}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query post history: %w", err)
	}
	defer rows.Close()

	var entries []manga.PostHistoryEntry
	for rows.Next() {
		var (
			entry    manga.PostHistoryEntry
			postedAt int64
		)
		if err := rows.Scan(&entry.Title, &entry.PostText, &entry.TweetID, &postedAt); err != nil {
			return nil, fmt.Errorf("scan post history: %w", err)
		}
		entry.Timestamp = manga.Timestamp{Time: time.Unix(postedAt, 0)}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post history: %w", err)
	}
	return entries, nil
}

// Close закрывает соединение с базой.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
