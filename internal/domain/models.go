package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID            int64
	CreatedAt     time.Time
	AccountNumber string
	Name          string
}

type AssetType struct {
	ID   int64
	Code string
	Name string
}

// AccountBalance текущий баланс счета в конкретном активе. Хранится как агрегат и меняется только
// внутри транзакции, предварительно заблокировавшей строку.
type AccountBalance struct {
	ID          int64
	AccountID   int64
	AssetTypeID int64
	Balance     decimal.Decimal
	UpdatedAt   time.Time
}

// Transaction факт применённого перевода. После записи не изменяется.
type Transaction struct {
	ID             int64
	CreatedAt      time.Time
	CompletedAt    time.Time
	TransactionID  string
	IdempotencyKey string
	Type           TransactionType
	Status         TransactionStatus
	FromAccountID  int64
	ToAccountID    int64
	AssetTypeID    int64
	Amount         decimal.Decimal
	Description    string
	Metadata       map[string]any
}

type LedgerEntry struct {
	ID              int64
	CreatedAt       time.Time
	TransactionID   string
	IdempotencyKey  string
	EntryType       EntryType
	AccountID       int64
	AssetTypeID     int64
	Amount          decimal.Decimal
	TransactionType TransactionType
	Description     string
	Metadata        map[string]any
}
