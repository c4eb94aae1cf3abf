package uow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RepositoryName string
type Repository any
type RepositoryFactory func(DBTX) Repository

type UnitOfWork struct {
	conn         *pgxpool.Pool
	repositories map[RepositoryName]RepositoryFactory
	txOptions    pgx.TxOptions
	lockTimeout  time.Duration
	convertErr   func(error) error
}

type Option func(*UnitOfWork) error

// WithLockTimeout ограничивает ожидание строковых блокировок внутри каждой транзакции (SET LOCAL lock_timeout).
// По истечении postgres вернет lock_not_available, транзакция откатится.
func WithLockTimeout(d time.Duration) Option {
	return func(u *UnitOfWork) error {
		if d < 0 {
			return ErrInvalidLockTimeout
		}
		u.lockTimeout = d
		return nil
	}
}

// WithErrorConverter задает функцию, через которую проходят ошибки begin/commit/rollback самой транзакции.
// Ошибки, которые вернула fn, не трогаются.
func WithErrorConverter(fn func(error) error) Option {
	return func(u *UnitOfWork) error {
		if fn != nil {
			u.convertErr = fn
		}
		return nil
	}
}

func NewUnitOfWork(conn *pgxpool.Pool, opts ...Option) (*UnitOfWork, error) {
	u := &UnitOfWork{
		conn:         conn,
		repositories: make(map[RepositoryName]RepositoryFactory),
		txOptions:    pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		convertErr:   func(err error) error { return err },
	}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Register регистрирует репозиторий у себя в мапе. Если репозиторий уже зарегистрирован, возвращает
// ошибку ErrRepositoryAlreadyRegistered.
func (u *UnitOfWork) Register(name RepositoryName, factory RepositoryFactory) error {
	if factory == nil {
		return ErrNilRepositoryFactory
	}
	if _, ok := u.repositories[name]; ok {
		return ErrRepositoryAlreadyRegistered
	}
	u.repositories[name] = factory
	return nil
}

// Do выполняет функцию fn внутри транзакции. Коммит происходит только если fn вернула nil,
// на любом другом пути транзакция откатывается.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, TX) error) (err error) {
	tx, txErr := u.conn.BeginTx(ctx, u.txOptions)
	if txErr != nil {
		return u.convertErr(txErr)
	}
	defer func() {
		// Rollback использует отдельный контекст: исходный мог истечь, а соединение нужно вернуть в пул чистым.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if rollbackErr := tx.Rollback(rbCtx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			err = errors.Join(err, u.convertErr(rollbackErr))
		}
	}()

	if u.lockTimeout > 0 {
		// SET LOCAL не принимает плейсхолдеры.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds())
		if _, execErr := tx.Exec(ctx, stmt); execErr != nil {
			return u.convertErr(execErr)
		}
	}

	if transErr := fn(ctx, NewTransaction(tx, u.repositories)); transErr != nil {
		return transErr
	}
	if commitErr := tx.Commit(ctx); commitErr != nil {
		return u.convertErr(commitErr)
	}
	return nil
}

// GetRepository возвращает репозиторий, работающий вне транзакции, или ошибку ErrRepositoryNotRegistered.
func (u *UnitOfWork) GetRepository(name RepositoryName) (Repository, error) {
	if repoFactory, ok := u.repositories[name]; ok {
		return repoFactory(u.conn), nil
	}
	return nil, ErrRepositoryNotRegistered
}

// GetRepositoryAs возвращает репозиторий по имени name и приводит его к типу T. Возвращает ошибки
// ErrRepositoryNotRegistered и ErrInvalidRepositoryType.
func GetRepositoryAs[T any](u UOW, name RepositoryName) (T, error) {
	var res T
	repo, err := u.GetRepository(name)
	if err != nil {
		return res, err //nolint:wrapcheck
	}
	r, ok := repo.(T)
	if !ok {
		return res, ErrInvalidRepositoryType
	}
	return r, nil
}
