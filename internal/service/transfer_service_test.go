package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/internal/service/mocks"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-wallet/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type TransferServiceTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockUOW         *uowmocks.MockUOW
	mockTX          *uowmocks.MockTX
	mockIDs         *mocks.MockIDGenerator
	mockTxRepo      *mocks.MockTransactionRepository
	mockOuterTxRepo *mocks.MockTransactionRepository
	mockAssetRepo   *mocks.MockAssetTypeRepository
	mockAccountRepo *mocks.MockAccountRepository
	mockBalanceRepo *mocks.MockBalanceRepository
	mockLedgerRepo  *mocks.MockLedgerEntryRepository
	service         *TransferService

	asset    domain.AssetType
	treasury domain.Account
	user     domain.Account
}

func TestTransferServiceSuite(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}

func (s *TransferServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockIDs = mocks.NewMockIDGenerator(s.mockCtrl)
	s.mockTxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockOuterTxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockAssetRepo = mocks.NewMockAssetTypeRepository(s.mockCtrl)
	s.mockAccountRepo = mocks.NewMockAccountRepository(s.mockCtrl)
	s.mockBalanceRepo = mocks.NewMockBalanceRepository(s.mockCtrl)
	s.mockLedgerRepo = mocks.NewMockLedgerEntryRepository(s.mockCtrl)

	// Репозиторий вне транзакции, запрашивается при инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockOuterTxRepo, nil).AnyTimes()

	// Репозитории внутри транзакции.
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.TransactionRepoName)).Return(s.mockTxRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.AssetTypeRepoName)).Return(s.mockAssetRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.AccountRepoName)).Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.BalanceRepoName)).Return(s.mockBalanceRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.LedgerEntryRepoName)).Return(s.mockLedgerRepo, nil).AnyTimes()

	s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		}).AnyTimes()

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	service, err := NewTransferService(s.mockUOW, s.mockIDs, l)
	s.Require().NoError(err)
	s.service = service

	s.asset = domain.AssetType{ID: 1, Code: "CREDITS", Name: "Credits"}
	s.treasury = domain.Account{ID: 10, AccountNumber: "SYS-TREASURY-001"}
	s.user = domain.Account{ID: 4, AccountNumber: "USER-001"}
}

func (s *TransferServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *TransferServiceTestSuite) args(amount int64) domain.TransferArgs {
	return domain.TransferArgs{
		FromAccount:    s.treasury.AccountNumber,
		ToAccount:      s.user.AccountNumber,
		AssetCode:      s.asset.Code,
		Amount:         decimal.NewFromInt(amount),
		Type:           domain.TransactionTypeTopUp,
		Description:    "Wallet top-up via purchase",
		IdempotencyKey: gofakeit.UUID(),
	}
}

// expectLocks настраивает поиск актива и блокировки, возвращая балансы treasury и user.
func (s *TransferServiceTestSuite) expectLocks(args domain.TransferArgs, treasuryBalance, userBalance int64) {
	s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
		Return(nil, domain.ErrRecordNotFound)
	s.mockAssetRepo.EXPECT().FindByCode(gomock.Any(), args.AssetCode).Return(&s.asset, nil)
	s.mockAccountRepo.EXPECT().
		LockByNumbers(gomock.Any(), []string{args.FromAccount, args.ToAccount}).
		Return([]domain.Account{s.user, s.treasury}, nil)
	// Балансы блокируются по возрастанию id счета независимо от направления перевода.
	s.mockBalanceRepo.EXPECT().
		LockForAsset(gomock.Any(), s.asset.ID, []int64{s.user.ID, s.treasury.ID}).
		Return([]domain.AccountBalance{
			{ID: 1, AccountID: s.user.ID, AssetTypeID: s.asset.ID, Balance: decimal.NewFromInt(userBalance)},
			{ID: 2, AccountID: s.treasury.ID, AssetTypeID: s.asset.ID, Balance: decimal.NewFromInt(treasuryBalance)},
		}, nil)
}

func (s *TransferServiceTestSuite) TestExecuteTransferSuccess() {
	args := s.args(100)
	s.expectLocks(args, 1000, 0)

	s.mockIDs.EXPECT().NewTransactionID().Return("TXN-1-abcdef01")

	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in repoargs.TransactionCreate) (*domain.Transaction, error) {
			s.Equal("TXN-1-abcdef01", in.TransactionID)
			s.Equal(args.IdempotencyKey, in.IdempotencyKey)
			s.Equal(s.treasury.ID, in.FromAccountID)
			s.Equal(s.user.ID, in.ToAccountID)
			s.True(args.Amount.Equal(in.Amount))
			s.NotNil(in.Metadata)
			return &domain.Transaction{ID: 1, TransactionID: in.TransactionID}, nil
		})

	s.mockLedgerRepo.EXPECT().BatchCreate(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, entries []repoargs.LedgerEntryCreate, fn repoargs.BatchExecQueryRow) {
			s.Require().Len(entries, 2)
			s.Equal(domain.EntryTypeDebit, entries[0].EntryType)
			s.Equal(s.treasury.ID, entries[0].AccountID)
			s.Equal(args.IdempotencyKey+"-DEBIT", entries[0].IdempotencyKey)
			s.Equal(domain.EntryTypeCredit, entries[1].EntryType)
			s.Equal(s.user.ID, entries[1].AccountID)
			s.Equal(args.IdempotencyKey+"-CREDIT", entries[1].IdempotencyKey)
			for i := range entries {
				s.True(entries[i].Amount.Equal(args.Amount))
				fn(i, nil)
			}
		})

	gomock.InOrder(
		s.mockBalanceRepo.EXPECT().ApplyChange(gomock.Any(), repoargs.BalanceChange{
			AccountID: s.treasury.ID, AssetTypeID: s.asset.ID, Delta: args.Amount.Neg(),
		}).Return(nil),
		s.mockBalanceRepo.EXPECT().ApplyChange(gomock.Any(), repoargs.BalanceChange{
			AccountID: s.user.ID, AssetTypeID: s.asset.ID, Delta: args.Amount,
		}).Return(nil),
	)

	res, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().NoError(err)
	s.False(res.Duplicate)
	s.Equal("TXN-1-abcdef01", res.TransactionID)
	s.Equal(s.treasury.AccountNumber, res.FromAccount)
	s.Equal(s.user.AccountNumber, res.ToAccount)
	s.Equal(s.asset.Code, res.AssetCode)
	s.True(res.Amount.Equal(args.Amount))
}

func (s *TransferServiceTestSuite) TestExecuteTransferDuplicate() {
	args := s.args(100)
	stored := &domain.Transaction{ID: 7, TransactionID: "TXN-1-00000000", IdempotencyKey: args.IdempotencyKey}

	s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).Return(stored, nil)
	// Никаких блокировок и записей.
	s.mockAccountRepo.EXPECT().LockByNumbers(gomock.Any(), gomock.Any()).Times(0)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockBalanceRepo.EXPECT().ApplyChange(gomock.Any(), gomock.Any()).Times(0)

	res, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().NoError(err)
	s.True(res.Duplicate)
	s.Equal(stored, res.Transaction)
}

func (s *TransferServiceTestSuite) TestExecuteTransferConcurrentDuplicate() {
	args := s.args(100)
	s.expectLocks(args, 1000, 0)
	s.mockIDs.EXPECT().NewTransactionID().Return("TXN-2-abcdef02")

	// Конкурент закоммитил раньше, вставка падает на уникальном индексе.
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrDuplicateKey)

	stored := &domain.Transaction{ID: 8, TransactionID: "TXN-1-winner00", IdempotencyKey: args.IdempotencyKey}
	s.mockOuterTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).Return(stored, nil)

	res, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().NoError(err)
	s.True(res.Duplicate)
	s.Equal("TXN-1-winner00", res.Transaction.TransactionID)
}

// Вставка проиграла гонку на самом исходе дедлайна попытки: поиск победителя все равно должен успеть.
func (s *TransferServiceTestSuite) TestExecuteTransferDuplicateAfterAttemptDeadline() {
	s.service.SetTimeout(20 * time.Millisecond)
	args := s.args(100)
	s.expectLocks(args, 1000, 0)
	s.mockIDs.EXPECT().NewTransactionID().Return("TXN-4-abcdef04")

	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ repoargs.TransactionCreate) (*domain.Transaction, error) {
			<-ctx.Done()
			return nil, domain.ErrDuplicateKey
		})

	stored := &domain.Transaction{ID: 9, TransactionID: "TXN-1-winner00", IdempotencyKey: args.IdempotencyKey}
	s.mockOuterTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
		DoAndReturn(func(ctx context.Context, _ string) (*domain.Transaction, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return stored, nil
		})

	res, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().NoError(err)
	s.True(res.Duplicate)
	s.Equal("TXN-1-winner00", res.Transaction.TransactionID)
}

func (s *TransferServiceTestSuite) TestExecuteTransferUnresolvedDuplicate() {
	args := s.args(100)
	s.expectLocks(args, 1000, 0)
	s.mockIDs.EXPECT().NewTransactionID().Return("TXN-3-abcdef03")
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrDuplicateKey)
	s.mockOuterTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
		Return(nil, domain.ErrRecordNotFound)

	_, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrDuplicateKey)
}

func (s *TransferServiceTestSuite) TestExecuteTransferInsufficientFunds() {
	args := s.args(100)
	s.expectLocks(args, 99, 0)

	s.mockIDs.EXPECT().NewTransactionID().Times(0)
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockBalanceRepo.EXPECT().ApplyChange(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
}

func (s *TransferServiceTestSuite) TestExecuteTransferNotFound() {
	cases := []struct {
		name  string
		setup func(args domain.TransferArgs)
	}{
		{
			name: "unknown_asset",
			setup: func(args domain.TransferArgs) {
				s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
					Return(nil, domain.ErrRecordNotFound)
				s.mockAssetRepo.EXPECT().FindByCode(gomock.Any(), args.AssetCode).
					Return(nil, domain.ErrRecordNotFound)
			},
		},
		{
			name: "unknown_account",
			setup: func(args domain.TransferArgs) {
				s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
					Return(nil, domain.ErrRecordNotFound)
				s.mockAssetRepo.EXPECT().FindByCode(gomock.Any(), args.AssetCode).Return(&s.asset, nil)
				s.mockAccountRepo.EXPECT().LockByNumbers(gomock.Any(), gomock.Any()).
					Return([]domain.Account{s.treasury}, nil)
			},
		},
		{
			name: "missing_balance_row",
			setup: func(args domain.TransferArgs) {
				s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
					Return(nil, domain.ErrRecordNotFound)
				s.mockAssetRepo.EXPECT().FindByCode(gomock.Any(), args.AssetCode).Return(&s.asset, nil)
				s.mockAccountRepo.EXPECT().LockByNumbers(gomock.Any(), gomock.Any()).
					Return([]domain.Account{s.user, s.treasury}, nil)
				s.mockBalanceRepo.EXPECT().LockForAsset(gomock.Any(), s.asset.ID, gomock.Any()).
					Return([]domain.AccountBalance{
						{AccountID: s.treasury.ID, AssetTypeID: s.asset.ID, Balance: decimal.NewFromInt(1000)},
					}, nil)
			},
		},
	}

	for _, tt := range cases {
		s.Run(tt.name, func() {
			args := s.args(10)
			tt.setup(args)
			_, err := s.service.ExecuteTransfer(context.Background(), args)
			s.Require().ErrorIs(err, domain.ErrRecordNotFound)
		})
	}
}

func (s *TransferServiceTestSuite) TestExecuteTransferInvalidInput() {
	tooPrecise, _ := decimal.NewFromString("0.000000001")

	cases := []struct {
		name   string
		mutate func(a *domain.TransferArgs)
	}{
		{name: "zero_amount", mutate: func(a *domain.TransferArgs) { a.Amount = decimal.Zero }},
		{name: "negative_amount", mutate: func(a *domain.TransferArgs) { a.Amount = decimal.NewFromInt(-5) }},
		{name: "too_precise", mutate: func(a *domain.TransferArgs) { a.Amount = tooPrecise }},
		{name: "empty_key", mutate: func(a *domain.TransferArgs) { a.IdempotencyKey = "" }},
		{name: "empty_from", mutate: func(a *domain.TransferArgs) { a.FromAccount = "" }},
		{name: "empty_asset", mutate: func(a *domain.TransferArgs) { a.AssetCode = "" }},
		{name: "unknown_type", mutate: func(a *domain.TransferArgs) { a.Type = "GIFT" }},
	}

	// Валидация происходит до обращения к хранилищу.
	s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any()).Times(0)

	for _, tt := range cases {
		s.Run(tt.name, func() {
			args := s.args(10)
			tt.mutate(&args)
			_, err := s.service.ExecuteTransfer(context.Background(), args)
			s.Require().ErrorIs(err, domain.ErrInvalidInput)
		})
	}
}

func (s *TransferServiceTestSuite) TestExecuteTransferLockOrderReverse() {
	// Перевод от пользователя к казначейству блокирует балансы в том же порядке, что и обратный.
	args := s.args(5)
	args.FromAccount, args.ToAccount = s.user.AccountNumber, s.treasury.AccountNumber

	s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
		Return(nil, domain.ErrRecordNotFound)
	s.mockAssetRepo.EXPECT().FindByCode(gomock.Any(), args.AssetCode).Return(&s.asset, nil)
	s.mockAccountRepo.EXPECT().LockByNumbers(gomock.Any(), gomock.Any()).
		Return([]domain.Account{s.user, s.treasury}, nil)
	s.mockBalanceRepo.EXPECT().
		LockForAsset(gomock.Any(), s.asset.ID, []int64{s.user.ID, s.treasury.ID}).
		Return(nil, domain.ErrTransient)

	_, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrTransient)
}

func (s *TransferServiceTestSuite) TestExecuteTransferLedgerFailure() {
	args := s.args(100)
	s.expectLocks(args, 1000, 0)
	s.mockIDs.EXPECT().NewTransactionID().Return("TXN-4-abcdef04")
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)

	s.mockLedgerRepo.EXPECT().BatchCreate(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, _ []repoargs.LedgerEntryCreate, fn repoargs.BatchExecQueryRow) {
			fn(0, nil)
			fn(1, domain.ErrUnknown)
		})
	s.mockBalanceRepo.EXPECT().ApplyChange(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrUnknown)
}

func (s *TransferServiceTestSuite) TestExecuteTransferSameAccount() {
	args := s.args(5)
	args.FromAccount = s.user.AccountNumber
	args.Type = domain.TransactionTypeTransfer

	s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
		Return(nil, domain.ErrRecordNotFound)
	s.mockAssetRepo.EXPECT().FindByCode(gomock.Any(), args.AssetCode).Return(&s.asset, nil)
	s.mockAccountRepo.EXPECT().LockByNumbers(gomock.Any(), []string{s.user.AccountNumber}).
		Return([]domain.Account{s.user}, nil)
	s.mockBalanceRepo.EXPECT().LockForAsset(gomock.Any(), s.asset.ID, []int64{s.user.ID}).
		Return([]domain.AccountBalance{
			{AccountID: s.user.ID, AssetTypeID: s.asset.ID, Balance: decimal.NewFromInt(5)},
		}, nil)
	s.mockIDs.EXPECT().NewTransactionID().Return("TXN-5-abcdef05")
	s.mockTxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.Transaction{}, nil)
	s.mockLedgerRepo.EXPECT().BatchCreate(gomock.Any(), gomock.Any(), gomock.Any())
	s.mockBalanceRepo.EXPECT().ApplyChange(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	res, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().NoError(err)
	s.Equal(s.user.AccountNumber, res.FromAccount)
	s.Equal(s.user.AccountNumber, res.ToAccount)
}

func (s *TransferServiceTestSuite) TestExecuteTransferDeadlineIsTransient() {
	args := s.args(5)
	s.mockTxRepo.EXPECT().FindByIdempotencyKey(gomock.Any(), args.IdempotencyKey).
		Return(nil, context.DeadlineExceeded)

	_, err := s.service.ExecuteTransfer(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrTransient)
	s.True(errors.Is(err, context.DeadlineExceeded))
}

func TestCanonicalOrder(t *testing.T) {
	cases := []struct {
		a, b         int64
		first, secnd int64
	}{
		{a: 1, b: 2, first: 1, secnd: 2},
		{a: 2, b: 1, first: 1, secnd: 2},
		{a: 5, b: 5, first: 5, secnd: 5},
	}
	for _, tt := range cases {
		first, second := canonicalOrder(tt.a, tt.b)
		if first != tt.first || second != tt.secnd {
			t.Errorf("canonicalOrder(%d, %d) = (%d, %d)", tt.a, tt.b, first, second)
		}
		// Симметрия: порядок аргументов не влияет на результат.
		rf, rs := canonicalOrder(tt.b, tt.a)
		if rf != first || rs != second {
			t.Errorf("canonicalOrder is not symmetric for (%d, %d)", tt.a, tt.b)
		}
	}
}
