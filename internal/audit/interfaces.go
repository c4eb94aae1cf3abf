package audit

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
)

type Servicer interface {
	TransactionsAfter(ctx context.Context, afterID int64, limit uint) ([]domain.Transaction, error)
	LedgerEntries(ctx context.Context, transactionIDs []string) (map[string][]domain.LedgerEntry, error)
}
