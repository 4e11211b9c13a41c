package storage

import "errors"

var (
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyProcessed платёж уже вышел из статуса pending.
	ErrAlreadyProcessed = errors.New("payment already processed")
)
