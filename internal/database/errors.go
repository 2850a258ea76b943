package database

import "errors"

var (
	// ErrNotAvailable — интервал уже занят бронью или чужим hold.
	ErrNotAvailable = errors.New("interval is not available")

	// ErrNotFound — запись не существует.
	ErrNotFound = errors.New("record not found")

	// ErrTournamentFull — все места на турнир заняты.
	ErrTournamentFull = errors.New("tournament is full")

	// ErrAlreadyRegistered — пользователь уже записан на турнир.
	ErrAlreadyRegistered = errors.New("user is already registered")
)
