package repoargs

import (
	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionCreate struct {
	TransactionID  string
	IdempotencyKey string
	Type           domain.TransactionType
	FromAccountID  int64
	ToAccountID    int64
	AssetTypeID    int64
	Amount         decimal.Decimal
	Description    string
	Metadata       map[string]any
}

type LedgerEntryCreate struct {
	TransactionID   string
	IdempotencyKey  string
	EntryType       domain.EntryType
	AccountID       int64
	AssetTypeID     int64
	Amount          decimal.Decimal
	TransactionType domain.TransactionType
	Description     string
	Metadata        map[string]any
}

// BatchExecQueryRow вызывается для каждого элемента батча с его индексом и ошибкой выполнения.
type BatchExecQueryRow func(i int, err error)
