package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTopUp    TransactionType = "TOP_UP"
	TransactionTypeBonus    TransactionType = "BONUS"
	TransactionTypeSpend    TransactionType = "SPEND"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// IsValid проверяет что тип транзакции входит в список известных.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTopUp, TransactionTypeBonus, TransactionTypeSpend, TransactionTypeTransfer:
		return true
	default:
		return false
	}
}

type TransactionStatus string

// TransactionStatusCompleted единственный статус, который сохраняется. Неудачные попытки не пишутся.
const TransactionStatusCompleted TransactionStatus = "COMPLETED"

type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// TransferArgs аргументы одного перевода. IdempotencyKey обязателен.
type TransferArgs struct {
	FromAccount    string
	ToAccount      string
	AssetCode      string
	Amount         decimal.Decimal
	Type           TransactionType
	Description    string
	IdempotencyKey string
	Metadata       map[string]any
}

// TransferResult результат перевода. При Duplicate == true заполнено только поле Transaction, содержащее
// ранее сохраненную транзакцию, остальные поля пустые.
type TransferResult struct {
	Duplicate     bool
	TransactionID string
	Amount        decimal.Decimal
	FromAccount   string
	ToAccount     string
	AssetCode     string
	Transaction   *Transaction
}

type AssetBalance struct {
	AssetCode string
	AssetName string
	Balance   decimal.Decimal
}

type HistoryItem struct {
	CreatedAt     time.Time
	TransactionID string
	Type          TransactionType
	Amount        decimal.Decimal
	Description   string
	AssetCode     string
	FromAccount   string
	ToAccount     string
}
