package videos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/yeti47/annotator/server/core/ccc/db"
)

// Catalog records the processed videos currently held in the outputs directory
type Catalog interface {
	// Add stores a new ProcessedVideo
	Add(ctx context.Context, video *ProcessedVideo) error

	// GetByStoredName returns the video with the given stored name, or nil if there is none
	GetByStoredName(ctx context.Context, storedName string) (*ProcessedVideo, error)

	// ListCreatedBefore returns videos created before cutoff, oldest first
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*ProcessedVideo, error)

	// Delete removes the record with the given ID
	Delete(ctx context.Context, id string) error
}

// SQLiteCatalog implements Catalog using SQLite
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog creates a new SQLite-based Catalog
func NewSQLiteCatalog(db *sql.DB) (*SQLiteCatalog, error) {
	catalog := &SQLiteCatalog{db: db}
	if err := catalog.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return catalog, nil
}

func (r *SQLiteCatalog) createTables() error {
	createTable := `
	CREATE TABLE IF NOT EXISTS processed_videos (
		id TEXT PRIMARY KEY,
		original_filename TEXT NOT NULL,
		stored_name TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		frame_rate REAL NOT NULL,
		frame_count INTEGER NOT NULL,
		codec TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		thumbnail_name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_processed_videos_created_at ON processed_videos(created_at);`

	_, err := r.db.Exec(createTable)
	return err
}

const selectColumns = `id, original_filename, stored_name, path, mime_type, width, height,
	frame_rate, frame_count, codec, size_bytes, checksum, thumbnail_name, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcessedVideo(row rowScanner) (*ProcessedVideo, error) {
	video := &ProcessedVideo{}
	var createdAt string
	err := row.Scan(
		&video.ID, &video.OriginalFilename, &video.StoredName, &video.Path, &video.MimeType,
		&video.Width, &video.Height, &video.FrameRate, &video.FrameCount, &video.Codec,
		&video.SizeBytes, &video.Checksum, &video.ThumbnailName, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	video.CreatedAt, err = db.StringToTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return video, nil
}

// Add stores a new ProcessedVideo
func (r *SQLiteCatalog) Add(ctx context.Context, video *ProcessedVideo) error {
	query := `
	INSERT INTO processed_videos (` + selectColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		video.ID, video.OriginalFilename, video.StoredName, video.Path, video.MimeType,
		video.Width, video.Height, video.FrameRate, video.FrameCount, video.Codec,
		video.SizeBytes, video.Checksum, video.ThumbnailName, db.TimeToString(video.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add processed video: %w", err)
	}
	return nil
}

// GetByStoredName returns the video with the given stored name, or nil if there is none
func (r *SQLiteCatalog) GetByStoredName(ctx context.Context, storedName string) (*ProcessedVideo, error) {
	query := `SELECT ` + selectColumns + ` FROM processed_videos WHERE stored_name = ?`

	video, err := scanProcessedVideo(r.db.QueryRowContext(ctx, query, storedName))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get processed video: %w", err)
	}
	return video, nil
}

// ListCreatedBefore returns videos created before cutoff, oldest first
func (r *SQLiteCatalog) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*ProcessedVideo, error) {
	query := `SELECT ` + selectColumns + ` FROM processed_videos WHERE created_at < ? ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, db.TimeToString(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query processed videos: %w", err)
	}
	defer rows.Close()

	var videos []*ProcessedVideo
	for rows.Next() {
		video, err := scanProcessedVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processed video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate processed videos: %w", err)
	}
	return videos, nil
}

// Delete removes the record with the given ID
func (r *SQLiteCatalog) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM processed_videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete processed video: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("processed video not found: %s", id)
	}
	return nil
}
