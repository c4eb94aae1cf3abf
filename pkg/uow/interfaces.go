package uow

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks
import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TX репозитории, привязанные к одной открытой транзакции. Живет только внутри fn, переданной в UOW.Do.
type TX interface {
	Get(name RepositoryName) (Repository, error)
}

// DBTX общий знаменатель pgxpool.Pool и pgx.Tx, через который работают репозитории. SendBatch нужен для вставки
// пары проводок одним запросом.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type UOW interface {
	Register(name RepositoryName, factory RepositoryFactory) error
	// Do коммитит только при nil от fn.
	Do(ctx context.Context, fn func(ctx context.Context, tx TX) error) error
	// GetRepository репозиторий вне транзакции, для чтений и поиска по ключу идемпотентности после отката.
	GetRepository(name RepositoryName) (Repository, error)
}
