package service

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// IDGenerator поставщик уникальных ключей идемпотентности и идентификаторов транзакций.
type IDGenerator interface {
	NewIdempotencyKey() string
	NewTransactionID() string
}

// TransferExecutor выполняет один перевод атомарно. Реализован TransferService.
type TransferExecutor interface {
	ExecuteTransfer(ctx context.Context, args domain.TransferArgs) (*domain.TransferResult, error)
}

type AccountRepository interface {
	LockByNumbers(ctx context.Context, numbers []string) ([]domain.Account, error)
}

type AssetTypeRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.AssetType, error)
}

type BalanceRepository interface {
	LockForAsset(ctx context.Context, assetTypeID int64, accountIDs []int64) ([]domain.AccountBalance, error)
	ApplyChange(ctx context.Context, change repoargs.BalanceChange) error
	GetByAccountNumber(ctx context.Context, number string) ([]domain.AssetBalance, error)
}

type TransactionRepository interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	Create(ctx context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error)
	GetHistory(ctx context.Context, accountNumber string, limit uint) ([]domain.HistoryItem, error)
	ListAfter(ctx context.Context, cursor repoargs.AuditCursor) ([]domain.Transaction, error)
}

type LedgerEntryRepository interface {
	BatchCreate(ctx context.Context, entries []repoargs.LedgerEntryCreate, fn repoargs.BatchExecQueryRow)
	GetByTransactionIDs(ctx context.Context, transactionIDs []string) ([]domain.LedgerEntry, error)
}
