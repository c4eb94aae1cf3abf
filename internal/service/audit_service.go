package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
)

// AuditService отдает транзакции и их проводки для фоновой сверки. Только чтение.
type AuditService struct {
	txRepo     TransactionRepository
	ledgerRepo LedgerEntryRepository
}

func NewAuditService(u uow.UOW) (*AuditService, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	ledgerRepo, err := uow.GetRepositoryAs[LedgerEntryRepository](u, uow.RepositoryName(repoargs.LedgerEntryRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &AuditService{
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
	}, nil
}

// TransactionsAfter возвращает до limit транзакций с id > afterID по возрастанию id.
func (a *AuditService) TransactionsAfter(ctx context.Context, afterID int64, limit uint) ([]domain.Transaction, error) {
	txs, err := a.txRepo.ListAfter(ctx, repoargs.AuditCursor{AfterID: afterID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("transactions after %d: %w", afterID, err)
	}
	return txs, nil
}

// LedgerEntries возвращает проводки сгруппированные по TransactionID.
func (a *AuditService) LedgerEntries(
	ctx context.Context,
	transactionIDs []string,
) (map[string][]domain.LedgerEntry, error) {
	if len(transactionIDs) == 0 {
		return map[string][]domain.LedgerEntry{}, nil
	}
	entries, err := a.ledgerRepo.GetByTransactionIDs(ctx, transactionIDs)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	grouped := make(map[string][]domain.LedgerEntry, len(transactionIDs))
	for _, entry := range entries {
		grouped[entry.TransactionID] = append(grouped[entry.TransactionID], entry)
	}
	return grouped, nil
}
