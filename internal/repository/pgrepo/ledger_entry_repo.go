package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type LedgerEntryRepository struct {
	db uow.DBTX
}

func NewLedgerEntryRepository(db uow.DBTX) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: db}
}

const insertLedgerEntrySQL = `INSERT INTO ledger_entries
	(transaction_id, idempotency_key, entry_type, account_id, asset_type_id, amount, transaction_type,
	 description, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// BatchCreate отправляет проводки одним батчем. fn вызывается для каждой проводки с результатом её вставки.
// Повтор ключа проводки дает domain.ErrDuplicateKey.
func (r *LedgerEntryRepository) BatchCreate(
	ctx context.Context,
	entries []repoargs.LedgerEntryCreate,
	fn repoargs.BatchExecQueryRow,
) {
	batch := new(pgx.Batch)
	for _, e := range entries {
		batch.Queue(insertLedgerEntrySQL,
			e.TransactionID,
			e.IdempotencyKey,
			string(e.EntryType),
			e.AccountID,
			e.AssetTypeID,
			e.Amount,
			string(e.TransactionType),
			e.Description,
			emptyIfNil(e.Metadata),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	var failed bool
	for i := range entries {
		_, err := results.Exec()
		failed = failed || err != nil
		fn(i, convertErr(err, "creating ledger entry `%s`", entries[i].IdempotencyKey))
	}
	// после ошибки в батче Close повторяет её же, второй раз не сообщаем.
	if closeErr := results.Close(); closeErr != nil && !failed {
		fn(len(entries)-1, convertErr(closeErr, "closing ledger entries batch"))
	}
}

// GetByTransactionIDs возвращает проводки указанных транзакций.
func (r *LedgerEntryRepository) GetByTransactionIDs(
	ctx context.Context,
	transactionIDs []string,
) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, created_at, transaction_id, idempotency_key, entry_type, account_id, asset_type_id, amount,
		        transaction_type, description, metadata
		 FROM ledger_entries
		 WHERE transaction_id = ANY($1)
		 ORDER BY id ASC`,
		transactionIDs,
	)
	if err != nil {
		return nil, convertErr(err, "getting ledger entries")
	}
	entries, collectErr := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerEntry, error) {
		var (
			e                domain.LedgerEntry
			entryType, tType string
		)
		scanErr := row.Scan(
			&e.ID, &e.CreatedAt, &e.TransactionID, &e.IdempotencyKey, &entryType, &e.AccountID, &e.AssetTypeID,
			&e.Amount, &tType, &e.Description, &e.Metadata,
		)
		e.EntryType = domain.EntryType(entryType)
		e.TransactionType = domain.TransactionType(tType)
		return e, scanErr //nolint:wrapcheck
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "getting ledger entries")
	}
	return entries, nil
}
