package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode      = "23505"
	checkViolationCode       = "23514"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
	lockNotAvailableCode     = "55P03"
	queryCanceledCode        = "57014"
)

// convertErr преобразует ошибку к стандартному виду для слоя репозитория.
// Добавляет форматированное сообщение контекста, тип бизнес-ошибки и оригинальное сообщение.
// Особенности:
//   - Для ошибок отсутствия данных (pgx.ErrNoRows) возвращает ErrRecordNotFound из domain.
//   - Нарушение уникальности (uniqueViolationCode) - ErrDuplicateKey, нарушение CHECK (checkViolationCode) -
//     ErrInsufficientFunds.
//   - Таймаут блокировки, deadlock, конфликт сериализации, отмена запроса, истекший контекст и
//     обрыв соединения - ErrTransient.
//   - Все остальные ошибки возвращаются как ErrUnknown с оригинальным сообщением.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, formatArgs...)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("[repository/%s] %w", msg, domain.ErrRecordNotFound)
	}

	return fmt.Errorf("[repository/%s] %w: %s", msg, classify(err), err.Error())
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return domain.ErrDuplicateKey
		case checkViolationCode:
			// сумма и тип проверяются до обращения к базе, поэтому CHECK нарушает только отрицательный баланс.
			return domain.ErrInsufficientFunds
		case serializationFailureCode, deadlockDetectedCode, lockNotAvailableCode, queryCanceledCode:
			return domain.ErrTransient
		default:
			return domain.ErrUnknown
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return domain.ErrTransient
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return domain.ErrTransient
	}

	return domain.ErrUnknown
}

// ConvertTxErr классифицирует ошибки, возникшие вне репозиториев (begin/commit транзакции).
// Уже классифицированные ошибки возвращаются как есть.
func ConvertTxErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrRecordNotFound,
		domain.ErrDuplicateKey,
		domain.ErrTransient,
		domain.ErrUnknown,
		domain.ErrInsufficientFunds,
		domain.ErrInvalidInput,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return convertErr(err, "transaction")
}
