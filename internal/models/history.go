package models

import "time"

// ListeningHistoryEntry одна запись истории прослушиваний. Записи только добавляются.
type ListeningHistoryEntry struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	SongID   string    `json:"song_id"`
	PlayedAt time.Time `json:"played_at"`
}
