package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultTopUpDescription = "Wallet top-up via purchase"
	defaultBonusDescription = "Bonus credit"
	defaultSpendDescription = "In-app purchase"

	defaultRetries    = 3
	defaultRetryDelay = 100 * time.Millisecond
)

// SystemAccounts номера системных счетов, участвующих в именованных операциях.
type SystemAccounts struct {
	Treasury string
	Bonus    string
	Revenue  string
}

// DefaultSystemAccounts счета, создаваемые миграцией.
var DefaultSystemAccounts = SystemAccounts{ //nolint:gochecknoglobals
	Treasury: "SYS-TREASURY-001",
	Bonus:    "SYS-BONUS-001",
	Revenue:  "SYS-REVENUE-001",
}

// WalletService именованные операции над кошельком поверх движка переводов.
type WalletService struct {
	engine     TransferExecutor
	ids        IDGenerator
	accounts   SystemAccounts
	l          *logrus.Entry
	retries    int
	retryDelay time.Duration
}

func NewWalletService(engine TransferExecutor, ids IDGenerator, accounts SystemAccounts, l *logrus.Logger) *WalletService {
	return &WalletService{
		engine:   engine,
		ids:      ids,
		accounts: accounts,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "wallet",
		}),
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
}

// SetRetries количество попыток на временных ошибках. Значения меньше 1 означают одну попытку.
func (w *WalletService) SetRetries(retries int) *WalletService {
	w.retries = retries
	return w
}

func (w *WalletService) SetRetryDelay(delay time.Duration) *WalletService {
	w.retryDelay = delay
	return w
}

// CallBudget наибольшее время одного вызова TopUp/IssueBonus/Spend/Transfer, если каждая попытка движка ограничена
// attemptTimeout: все попытки, паузы между ними с верхней границей разброса и поиск дубликата после гонки.
// Ноль означает, что попытки не ограничены и бюджет посчитать нельзя.
func (w *WalletService) CallBudget(attemptTimeout time.Duration) time.Duration {
	if attemptTimeout <= 0 {
		return 0
	}
	attempts := max(w.retries, 1)
	budget := time.Duration(attempts)*attemptTimeout + duplicateLookupTimeout
	for attempt := 1; attempt < attempts; attempt++ {
		budget += time.Duration(float64(w.retryDelay) * float64(attempt) * (1 + backoffSpread))
	}
	return budget
}

type TopUpArgs struct {
	AccountNumber  string
	AssetCode      string
	Amount         decimal.Decimal
	IdempotencyKey string
	Metadata       map[string]any
}

// TopUp зачисляет купленные средства из казначейства на счет пользователя.
func (w *WalletService) TopUp(ctx context.Context, args TopUpArgs) (*domain.TransferResult, error) {
	return w.run(ctx, domain.TransferArgs{
		FromAccount:    w.accounts.Treasury,
		ToAccount:      args.AccountNumber,
		AssetCode:      args.AssetCode,
		Amount:         args.Amount,
		Type:           domain.TransactionTypeTopUp,
		Description:    defaultTopUpDescription,
		IdempotencyKey: args.IdempotencyKey,
		Metadata:       args.Metadata,
	})
}

type BonusArgs struct {
	AccountNumber  string
	AssetCode      string
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
	Metadata       map[string]any
}

// IssueBonus начисляет бонус с бонусного пула. Reason становится описанием транзакции.
func (w *WalletService) IssueBonus(ctx context.Context, args BonusArgs) (*domain.TransferResult, error) {
	return w.run(ctx, domain.TransferArgs{
		FromAccount:    w.accounts.Bonus,
		ToAccount:      args.AccountNumber,
		AssetCode:      args.AssetCode,
		Amount:         args.Amount,
		Type:           domain.TransactionTypeBonus,
		Description:    orDefault(args.Reason, defaultBonusDescription),
		IdempotencyKey: args.IdempotencyKey,
		Metadata:       args.Metadata,
	})
}

type SpendArgs struct {
	AccountNumber  string
	AssetCode      string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
	Metadata       map[string]any
}

// Spend списывает средства пользователя в пользу счета выручки.
func (w *WalletService) Spend(ctx context.Context, args SpendArgs) (*domain.TransferResult, error) {
	return w.run(ctx, domain.TransferArgs{
		FromAccount:    args.AccountNumber,
		ToAccount:      w.accounts.Revenue,
		AssetCode:      args.AssetCode,
		Amount:         args.Amount,
		Type:           domain.TransactionTypeSpend,
		Description:    orDefault(args.Description, defaultSpendDescription),
		IdempotencyKey: args.IdempotencyKey,
		Metadata:       args.Metadata,
	})
}

type P2PArgs struct {
	FromAccount    string
	ToAccount      string
	AssetCode      string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
	Metadata       map[string]any
}

// Transfer перевод между произвольными счетами.
func (w *WalletService) Transfer(ctx context.Context, args P2PArgs) (*domain.TransferResult, error) {
	return w.run(ctx, domain.TransferArgs{
		FromAccount:    args.FromAccount,
		ToAccount:      args.ToAccount,
		AssetCode:      args.AssetCode,
		Amount:         args.Amount,
		Type:           domain.TransactionTypeTransfer,
		Description:    args.Description,
		IdempotencyKey: args.IdempotencyKey,
		Metadata:       args.Metadata,
	})
}

// run выполняет перевод, повторяя его на domain.ErrTransient с тем же ключом идемпотентности. Повтор безопасен:
// если предыдущая попытка на самом деле закоммитилась, движок вернет дубликат.
func (w *WalletService) run(ctx context.Context, args domain.TransferArgs) (*domain.TransferResult, error) {
	if args.IdempotencyKey == "" {
		args.IdempotencyKey = w.ids.NewIdempotencyKey()
	}
	l := w.l.WithFields(logrus.Fields{
		"idempotencyKey": args.IdempotencyKey,
		"type":           args.Type,
	})

	attempts := max(w.retries, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := w.engine.ExecuteTransfer(ctx, args)
		if err == nil {
			if res.Duplicate {
				l.Info("duplicate request, returning stored transaction")
			} else {
				l.WithField("transactionID", res.TransactionID).Info("transfer completed")
			}
			return res, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrTransient) {
			l.WithError(err).Warn("transfer rejected")
			return nil, err
		}

		l.WithError(err).WithField("attempt", attempt).Warn("transient failure")
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrTransient, ctx.Err())
		case <-time.After(backoff(w.retryDelay, attempt)):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
