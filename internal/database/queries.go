package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytsummarizer/internal/domain"
)

// GetSummary returns the cached summary for videoID unless it expired before now.
func (d *Database) GetSummary(
	ctx context.Context,
	videoID string,
	now time.Time,
) (*domain.CachedSummary, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.New("video ID is empty")
	}

	query := `select video_id, link, title, uploader, summary
	from summaries
	where video_id = ? and expires_at > ?`

	var s domain.CachedSummary

	err := d.db.QueryRowContext(ctx, query, videoID, now.Unix()).
		Scan(&s.VideoID, &s.Link, &s.Title, &s.Uploader, &s.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &s, nil
}

func (d *Database) SaveSummary(
	ctx context.Context,
	summary *domain.CachedSummary,
	now time.Time,
	ttl time.Duration,
) error {
	videoID := strings.TrimSpace(summary.VideoID)
	if videoID == "" {
		return errors.New("video ID is empty")
	}

	text := strings.TrimSpace(summary.Summary)
	if text == "" {
		return errors.New("summary is empty")
	}

	query := `insert into summaries (video_id, link, title, uploader, summary, created_at, expires_at)
	values (?, ?, ?, ?, ?, ?, ?)
	on conflict (video_id) do update
	set link = excluded.link,
	title = excluded.title,
	uploader = excluded.uploader,
	summary = excluded.summary,
	created_at = excluded.created_at,
	expires_at = excluded.expires_at`

	_, err := d.db.ExecContext(ctx, query,
		videoID,
		strings.TrimSpace(summary.Link),
		strings.TrimSpace(summary.Title),
		strings.TrimSpace(summary.Uploader),
		summary.Summary,
		now.Unix(),
		now.Add(ttl).Unix())

	return err
}

// DeleteExpired removes summaries that expired at or before now.
func (d *Database) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := "delete from summaries where expires_at <= ?"

	res, err := d.db.ExecContext(ctx, query, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
