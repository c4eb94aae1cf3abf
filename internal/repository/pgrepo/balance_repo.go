package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type BalanceRepository struct {
	db uow.DBTX
}

func NewBalanceRepository(db uow.DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// LockForAsset блокирует строки балансов указанных счетов в активе assetTypeID. Блокировки берутся по
// возрастанию account_id. Отсутствующие строки не попадают в результат.
func (r *BalanceRepository) LockForAsset(
	ctx context.Context,
	assetTypeID int64,
	accountIDs []int64,
) ([]domain.AccountBalance, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, account_id, asset_type_id, balance, updated_at FROM account_balances
		 WHERE asset_type_id = $1 AND account_id = ANY($2)
		 ORDER BY account_id ASC
		 FOR UPDATE`,
		assetTypeID, accountIDs,
	)
	if err != nil {
		return nil, convertErr(err, "locking balances of accounts %v", accountIDs)
	}
	balances, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AccountBalance, error) {
		var b domain.AccountBalance
		scanErr := row.Scan(&b.ID, &b.AccountID, &b.AssetTypeID, &b.Balance, &b.UpdatedAt)
		return b, scanErr //nolint:wrapcheck
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "locking balances of accounts %v", accountIDs)
	}
	return balances, nil
}

// ApplyChange прибавляет change.Delta к балансу. Новое значение не пересчитывается из истории проводок.
// Возвращает domain.ErrRecordNotFound если строки баланса нет, domain.ErrInsufficientFunds если баланс
// ушел бы в минус.
func (r *BalanceRepository) ApplyChange(ctx context.Context, change repoargs.BalanceChange) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE account_balances SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
		 WHERE account_id = $2 AND asset_type_id = $3`,
		change.Delta, change.AccountID, change.AssetTypeID,
	)
	if err != nil {
		return convertErr(err, "changing balance of account %d", change.AccountID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf(
			"[repository/changing balance of account %d asset %d] %w",
			change.AccountID, change.AssetTypeID, domain.ErrRecordNotFound,
		)
	}
	return nil
}

// GetByAccountNumber возвращает балансы счета во всех активах. Пустой результат - не ошибка.
func (r *BalanceRepository) GetByAccountNumber(ctx context.Context, number string) ([]domain.AssetBalance, error) {
	rows, err := r.db.Query(ctx,
		`SELECT at.code, at.name, ab.balance
		 FROM account_balances ab
		 JOIN accounts a ON ab.account_id = a.id
		 JOIN asset_types at ON ab.asset_type_id = at.id
		 WHERE a.account_number = $1
		 ORDER BY at.code`,
		number,
	)
	if err != nil {
		return nil, convertErr(err, "getting balances of account `%s`", number)
	}
	balances, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AssetBalance, error) {
		var b domain.AssetBalance
		scanErr := row.Scan(&b.AssetCode, &b.AssetName, &b.Balance)
		return b, scanErr //nolint:wrapcheck
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "getting balances of account `%s`", number)
	}
	return balances, nil
}
