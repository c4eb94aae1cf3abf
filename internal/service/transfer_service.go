package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	defaultTransferTimeout = 5 * time.Second
	duplicateLookupTimeout = 2 * time.Second
	// maxAmountScale соответствует NUMERIC(20,8).
	maxAmountScale       = 8
	maxIdempotencyKeyLen = 255
)

// TransferService движок переводов. Не хранит разделяемого изменяемого состояния, вся координация
// между конкурентными переводами происходит на блокировках строк в базе.
type TransferService struct {
	uow     uow.UOW
	txRepo  TransactionRepository
	ids     IDGenerator
	l       *logrus.Entry
	timeout time.Duration
}

func NewTransferService(u uow.UOW, ids IDGenerator, l *logrus.Logger) (*TransferService, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &TransferService{
		uow:    u,
		txRepo: txRepo,
		ids:    ids,
		l: l.WithFields(logrus.Fields{
			"component": "service",
			"module":    "transfer",
		}),
		timeout: defaultTransferTimeout,
	}, nil
}

// SetTimeout ограничивает время одной попытки перевода, включая ожидание блокировок.
func (s *TransferService) SetTimeout(timeout time.Duration) *TransferService {
	s.timeout = timeout
	return s
}

// validateTransfer проверяет аргументы до любого обращения к базе.
func validateTransfer(a domain.TransferArgs) error {
	switch {
	case a.FromAccount == "" || a.ToAccount == "":
		return fmt.Errorf("%w: from and to accounts are required", domain.ErrInvalidInput)
	case a.AssetCode == "":
		return fmt.Errorf("%w: asset code is required", domain.ErrInvalidInput)
	case a.IdempotencyKey == "":
		return fmt.Errorf("%w: idempotency key is required", domain.ErrInvalidInput)
	case len(a.IdempotencyKey) > maxIdempotencyKeyLen:
		return fmt.Errorf("%w: idempotency key is longer than %d bytes", domain.ErrInvalidInput, maxIdempotencyKeyLen)
	case !a.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	case a.Amount.Exponent() < -maxAmountScale && !a.Amount.Equal(a.Amount.Truncate(maxAmountScale)):
		return fmt.Errorf("%w: amount has more than %d decimal places", domain.ErrInvalidInput, maxAmountScale)
	case !a.Type.IsValid():
		return fmt.Errorf("%w: unknown transaction type `%s`", domain.ErrInvalidInput, a.Type)
	}
	return nil
}

// canonicalOrder упорядочивает пару id счетов по возрастанию. Все блокировки берутся в этом порядке, что
// исключает цикл ожиданий между переводами, затрагивающими одни и те же счета.
func canonicalOrder(idA, idB int64) (int64, int64) {
	if idA <= idB {
		return idA, idB
	}
	return idB, idA
}

// ExecuteTransfer переводит amount актива со счета from на счет to одной транзакцией базы.
//
// Алгоритм работы:
//  1. Ищет транзакцию по ключу идемпотентности. Если она есть - возвращает её с Duplicate = true без
//     каких-либо изменений.
//  2. Находит актив, затем блокирует строки обоих счетов и их балансов в порядке возрастания id счета.
//  3. Проверяет достаточность средств на счете-источнике.
//  4. Создает транзакцию, проводки DEBIT и CREDIT и меняет оба баланса.
//
// Любая ошибка откатывает транзакцию целиком. Если конкурентный запрос с тем же ключом успел закоммитить
// раньше, вставка упадет на уникальном индексе; в этом случае транзакция перечитывается по ключу и
// возвращается как дубликат.
//
// Ошибки: domain.ErrInvalidInput, domain.ErrRecordNotFound, domain.ErrInsufficientFunds,
// domain.ErrTransient, domain.ErrDuplicateKey (если гонку не удалось разрешить), domain.ErrUnknown.
func (s *TransferService) ExecuteTransfer(ctx context.Context, args domain.TransferArgs) (*domain.TransferResult, error) {
	if err := validateTransfer(args); err != nil {
		return nil, err
	}

	attemptCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var result *domain.TransferResult
	txErr := s.uow.Do(attemptCtx, func(c context.Context, tx uow.TX) error {
		var applyErr error
		result, applyErr = s.apply(c, tx, args)
		return applyErr
	})

	if txErr != nil {
		if errors.Is(txErr, domain.ErrDuplicateKey) {
			return s.resolveDuplicate(ctx, args.IdempotencyKey, txErr)
		}
		if errors.Is(txErr, context.DeadlineExceeded) && !errors.Is(txErr, domain.ErrTransient) {
			txErr = fmt.Errorf("%w: %w", domain.ErrTransient, txErr)
		}
		return nil, fmt.Errorf("executing transfer `%s`: %w", args.IdempotencyKey, txErr)
	}
	return result, nil
}

func (s *TransferService) apply(ctx context.Context, tx uow.TX, args domain.TransferArgs) (*domain.TransferResult, error) {
	repos, reposErr := s.txRepositories(tx)
	if reposErr != nil {
		return nil, reposErr
	}

	existing, findErr := repos.transactions.FindByIdempotencyKey(ctx, args.IdempotencyKey)
	if findErr == nil {
		return duplicateResult(existing), nil
	}
	if !errors.Is(findErr, domain.ErrRecordNotFound) {
		return nil, findErr
	}

	asset, assetErr := repos.assets.FindByCode(ctx, args.AssetCode)
	if assetErr != nil {
		return nil, fmt.Errorf("asset type `%s`: %w", args.AssetCode, assetErr)
	}

	from, to, accErr := s.lockAccounts(ctx, repos.accounts, args.FromAccount, args.ToAccount)
	if accErr != nil {
		return nil, accErr
	}

	fromBalance, balErr := s.lockBalances(ctx, repos.balances, asset, from, to)
	if balErr != nil {
		return nil, balErr
	}

	if fromBalance.Balance.LessThan(args.Amount) {
		return nil, fmt.Errorf(
			"account `%s` has %s %s, requested %s: %w",
			from.AccountNumber, fromBalance.Balance, asset.Code, args.Amount, domain.ErrInsufficientFunds,
		)
	}

	transactionID := s.ids.NewTransactionID()
	if err := s.record(ctx, repos, args, transactionID, from, to, asset); err != nil {
		return nil, err
	}

	return &domain.TransferResult{
		Duplicate:     false,
		TransactionID: transactionID,
		Amount:        args.Amount,
		FromAccount:   from.AccountNumber,
		ToAccount:     to.AccountNumber,
		AssetCode:     asset.Code,
	}, nil
}

// lockAccounts блокирует строки счетов одним запросом. Перевод на тот же счет допустим, тогда блокируется одна
// строка.
func (s *TransferService) lockAccounts(
	ctx context.Context,
	repo AccountRepository,
	fromNumber, toNumber string,
) (*domain.Account, *domain.Account, error) {
	numbers := []string{fromNumber}
	if toNumber != fromNumber {
		numbers = append(numbers, toNumber)
	}

	accounts, err := repo.LockByNumbers(ctx, numbers)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	byNumber := make(map[string]*domain.Account, len(accounts))
	for i := range accounts {
		byNumber[accounts[i].AccountNumber] = &accounts[i]
	}
	for _, number := range numbers {
		if _, ok := byNumber[number]; !ok {
			return nil, nil, fmt.Errorf("account `%s`: %w", number, domain.ErrRecordNotFound)
		}
	}
	return byNumber[fromNumber], byNumber[toNumber], nil
}

// lockBalances блокирует строки балансов обоих счетов в активе asset и возвращает баланс источника.
// Строка баланса должна существовать заранее для обеих сторон.
func (s *TransferService) lockBalances(
	ctx context.Context,
	repo BalanceRepository,
	asset *domain.AssetType,
	from, to *domain.Account,
) (*domain.AccountBalance, error) {
	first, second := canonicalOrder(from.ID, to.ID)
	ids := []int64{first}
	if second != first {
		ids = append(ids, second)
	}

	balances, err := repo.LockForAsset(ctx, asset.ID, ids)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	byAccount := make(map[int64]*domain.AccountBalance, len(balances))
	for i := range balances {
		byAccount[balances[i].AccountID] = &balances[i]
	}
	for _, acc := range []*domain.Account{from, to} {
		if _, ok := byAccount[acc.ID]; !ok {
			return nil, fmt.Errorf(
				"balance of account `%s` in `%s`: %w", acc.AccountNumber, asset.Code, domain.ErrRecordNotFound,
			)
		}
	}
	return byAccount[from.ID], nil
}

// record пишет транзакцию, две проводки и меняет балансы.
func (s *TransferService) record(
	ctx context.Context,
	repos *txRepos,
	args domain.TransferArgs,
	transactionID string,
	from, to *domain.Account,
	asset *domain.AssetType,
) error {
	metadata := args.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	if _, err := repos.transactions.Create(ctx, repoargs.TransactionCreate{
		TransactionID:  transactionID,
		IdempotencyKey: args.IdempotencyKey,
		Type:           args.Type,
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		AssetTypeID:    asset.ID,
		Amount:         args.Amount,
		Description:    args.Description,
		Metadata:       metadata,
	}); err != nil {
		return err //nolint:wrapcheck
	}

	entries := []repoargs.LedgerEntryCreate{
		{
			TransactionID:   transactionID,
			IdempotencyKey:  ledgerEntryKey(args.IdempotencyKey, domain.EntryTypeDebit),
			EntryType:       domain.EntryTypeDebit,
			AccountID:       from.ID,
			AssetTypeID:     asset.ID,
			Amount:          args.Amount,
			TransactionType: args.Type,
			Description:     args.Description,
			Metadata:        metadata,
		},
		{
			TransactionID:   transactionID,
			IdempotencyKey:  ledgerEntryKey(args.IdempotencyKey, domain.EntryTypeCredit),
			EntryType:       domain.EntryTypeCredit,
			AccountID:       to.ID,
			AssetTypeID:     asset.ID,
			Amount:          args.Amount,
			TransactionType: args.Type,
			Description:     args.Description,
			Metadata:        metadata,
		},
	}
	// entriesErr хранит последнюю ошибку батча, после первой ошибки транзакция всё равно уже сломана.
	var entriesErr error
	repos.ledger.BatchCreate(ctx, entries, func(_ int, err error) {
		if err != nil {
			entriesErr = err
		}
	})
	if entriesErr != nil {
		return entriesErr
	}

	if err := repos.balances.ApplyChange(ctx, repoargs.BalanceChange{
		AccountID:   from.ID,
		AssetTypeID: asset.ID,
		Delta:       args.Amount.Neg(),
	}); err != nil {
		return err //nolint:wrapcheck
	}
	return repos.balances.ApplyChange(ctx, repoargs.BalanceChange{ //nolint:wrapcheck
		AccountID:   to.ID,
		AssetTypeID: asset.ID,
		Delta:       args.Amount,
	})
}

// resolveDuplicate вызывается когда вставка проиграла гонку уникальному индексу. Транзакция к этому моменту
// откачена, поэтому победившая запись читается уже вне её.
func (s *TransferService) resolveDuplicate(
	ctx context.Context,
	key string,
	cause error,
) (*domain.TransferResult, error) {
	// Дедлайн попытки мог истечь вместе с откатом, а победившая транзакция уже закоммичена.
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), duplicateLookupTimeout)
	defer cancel()

	existing, err := s.txRepo.FindByIdempotencyKey(lookupCtx, key)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("executing transfer `%s`: %w", key, cause)
		}
		return nil, fmt.Errorf("executing transfer `%s`: %w", key, errors.Join(cause, err))
	}
	s.l.WithField("idempotencyKey", key).Info("concurrent duplicate resolved by lookup")
	return duplicateResult(existing), nil
}

func duplicateResult(t *domain.Transaction) *domain.TransferResult {
	return &domain.TransferResult{
		Duplicate:   true,
		Transaction: t,
	}
}

// ledgerEntryKey ключ проводки: ключ транзакции с суффиксом типа проводки.
func ledgerEntryKey(key string, entryType domain.EntryType) string {
	return key + "-" + string(entryType)
}

type txRepos struct {
	transactions TransactionRepository
	assets       AssetTypeRepository
	accounts     AccountRepository
	balances     BalanceRepository
	ledger       LedgerEntryRepository
}

func (s *TransferService) txRepositories(tx uow.TX) (*txRepos, error) {
	var (
		repos txRepos
		err   error
	)
	if repos.transactions, err = uow.GetAs[TransactionRepository](
		tx, uow.RepositoryName(repoargs.TransactionRepoName),
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if repos.assets, err = uow.GetAs[AssetTypeRepository](
		tx, uow.RepositoryName(repoargs.AssetTypeRepoName),
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if repos.accounts, err = uow.GetAs[AccountRepository](
		tx, uow.RepositoryName(repoargs.AccountRepoName),
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if repos.balances, err = uow.GetAs[BalanceRepository](
		tx, uow.RepositoryName(repoargs.BalanceRepoName),
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if repos.ledger, err = uow.GetAs[LedgerEntryRepository](
		tx, uow.RepositoryName(repoargs.LedgerEntryRepoName),
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &repos, nil
}
