package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, created_at, completed_at, transaction_id, idempotency_key, transaction_type, status,
	from_account_id, to_account_id, asset_type_id, amount, description, metadata`

// FindByIdempotencyKey возвращает ранее сохраненную транзакцию или domain.ErrRecordNotFound.
func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction by idempotency key `%s`", key)
	}
	return &t, nil
}

// Create сохраняет завершенную транзакцию. При повторе ключа идемпотентности или transaction_id вернет
// domain.ErrDuplicateKey.
func (r *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.TransactionCreate,
) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO transactions
		 (transaction_id, idempotency_key, transaction_type, status, from_account_id, to_account_id,
		  asset_type_id, amount, description, metadata, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		 RETURNING `+transactionColumns,
		args.TransactionID,
		args.IdempotencyKey,
		string(args.Type),
		string(domain.TransactionStatusCompleted),
		args.FromAccountID,
		args.ToAccountID,
		args.AssetTypeID,
		args.Amount,
		args.Description,
		emptyIfNil(args.Metadata),
	)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction with key `%s`", args.IdempotencyKey)
	}
	return &t, nil
}

// GetHistory Возвращает транзакции, в которых счет участвует с любой стороны, отсортированные по дате
// создания по убыванию.
func (r *TransactionRepository) GetHistory(
	ctx context.Context,
	accountNumber string,
	limit uint,
) ([]domain.HistoryItem, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}
	rows, err := r.db.Query(ctx,
		`SELECT t.created_at, t.transaction_id, t.transaction_type, t.amount, t.description,
		        at.code, fa.account_number, ta.account_number
		 FROM transactions t
		 JOIN asset_types at ON t.asset_type_id = at.id
		 JOIN accounts fa ON t.from_account_id = fa.id
		 JOIN accounts ta ON t.to_account_id = ta.id
		 WHERE fa.account_number = $1 OR ta.account_number = $1
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT $2`,
		accountNumber, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "getting history of account `%s`", accountNumber)
	}
	items, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryItem, error) {
		var (
			h     domain.HistoryItem
			tType string
		)
		scanErr := row.Scan(
			&h.CreatedAt, &h.TransactionID, &tType, &h.Amount, &h.Description,
			&h.AssetCode, &h.FromAccount, &h.ToAccount,
		)
		h.Type = domain.TransactionType(tType)
		return h, scanErr //nolint:wrapcheck
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "getting history of account `%s`", accountNumber)
	}
	return items, nil
}

// ListAfter возвращает до limit транзакций с id больше afterID по возрастанию id.
func (r *TransactionRepository) ListAfter(
	ctx context.Context,
	cursor repoargs.AuditCursor,
) ([]domain.Transaction, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(cursor.Limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		cursor.AfterID, safeLimit,
	)
	if err != nil {
		return nil, convertErr(err, "listing transactions after id %d", cursor.AfterID)
	}
	transactions, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		return scanTransaction(row)
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "listing transactions after id %d", cursor.AfterID)
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		t              domain.Transaction
		tType, tStatus string
	)
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.CompletedAt, &t.TransactionID, &t.IdempotencyKey, &tType, &tStatus,
		&t.FromAccountID, &t.ToAccountID, &t.AssetTypeID, &t.Amount, &t.Description, &t.Metadata,
	)
	t.Type = domain.TransactionType(tType)
	t.Status = domain.TransactionStatus(tStatus)
	return t, err //nolint:wrapcheck
}
