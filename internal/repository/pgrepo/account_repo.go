package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type AccountRepository struct {
	db uow.DBTX
}

func NewAccountRepository(db uow.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, created_at, account_number, name`

// LockByNumbers одним запросом находит счета по номерам и берет на них эксклюзивную блокировку.
// Строки блокируются по возрастанию id независимо от порядка номеров в аргументе. Отсутствующие номера
// просто не попадают в результат, проверку полноты делает вызывающая сторона.
func (r *AccountRepository) LockByNumbers(ctx context.Context, numbers []string) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE account_number = ANY($1)
		 ORDER BY id ASC
		 FOR UPDATE`,
		numbers,
	)
	if err != nil {
		return nil, convertErr(err, "locking accounts %v", numbers)
	}
	accounts, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
		return scanAccount(row)
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "locking accounts %v", numbers)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.CreatedAt, &a.AccountNumber, &a.Name)
	return a, err //nolint:wrapcheck
}
