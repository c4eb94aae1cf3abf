package domain

import (
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrTransient временная ошибка хранилища (таймаут блокировки, deadlock, обрыв соединения). Запрос можно
	// безопасно повторить с тем же ключом идемпотентности.
	ErrTransient = errors.New("transient failure")
)
