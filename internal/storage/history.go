package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/models"
)

// AddListeningHistory добавляет запись о прослушивании.
func (s *Storage) AddListeningHistory(ctx context.Context, userID, songID string, playedAt time.Time) (*models.ListeningHistoryEntry, error) {
	const op = "storage.AddListeningHistory"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO listening_history (user_id, song_id, played_at)
			  VALUES ($1, $2, $3)
			  RETURNING id, user_id, song_id, played_at`
	var e models.ListeningHistoryEntry
	err := s.DB.QueryRowContext(ctx, query, userID, songID, playedAt).
		Scan(&e.ID, &e.UserID, &e.SongID, &e.PlayedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &e, nil
}

// ListListeningHistory возвращает последние limit записей пользователя, новые первыми.
func (s *Storage) ListListeningHistory(ctx context.Context, userID string, limit int) ([]*models.ListeningHistoryEntry, error) {
	const op = "storage.ListListeningHistory"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, song_id, played_at
			  FROM listening_history
			  WHERE user_id = $1
			  ORDER BY played_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ListeningHistoryEntry
	for rows.Next() {
		var e models.ListeningHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SongID, &e.PlayedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ClearListeningHistory удаляет всю историю пользователя и возвращает число удалённых строк.
func (s *Storage) ClearListeningHistory(ctx context.Context, userID string) (int, error) {
	const op = "storage.ClearListeningHistory"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM listening_history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
