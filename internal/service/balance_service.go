package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
)

const (
	DefaultHistoryLimit uint = 50
	MaxHistoryLimit     uint = 500
)

// BalanceService читатели балансов и истории. Работают вне транзакции и видят только закоммиченные данные.
type BalanceService struct {
	balanceRepo BalanceRepository
	txRepo      TransactionRepository
}

func NewBalanceService(u uow.UOW) (*BalanceService, error) {
	balanceRepo, err := uow.GetRepositoryAs[BalanceRepository](u, uow.RepositoryName(repoargs.BalanceRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &BalanceService{
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
	}, nil
}

// GetBalance возвращает балансы счета по всем активам. Если балансов нет (или нет счета) - domain.ErrRecordNotFound.
func (b *BalanceService) GetBalance(ctx context.Context, accountNumber string) ([]domain.AssetBalance, error) {
	balances, err := b.balanceRepo.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if len(balances) == 0 {
		return nil, fmt.Errorf("balances of account `%s`: %w", accountNumber, domain.ErrRecordNotFound)
	}
	return balances, nil
}

// GetHistory возвращает последние транзакции, где счет был отправителем или получателем, от новых к старым.
// limit == 0 заменяется на DefaultHistoryLimit, больше MaxHistoryLimit обрезается.
func (b *BalanceService) GetHistory(ctx context.Context, accountNumber string, limit int) ([]domain.HistoryItem, error) {
	items, err := b.txRepo.GetHistory(ctx, accountNumber, historyLimit(limit))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return items, nil
}

func historyLimit(limit int) uint {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case uint(limit) > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return uint(limit)
	}
}
