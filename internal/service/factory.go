package service

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	TransferService *TransferService
	WalletService   *WalletService
	BalanceService  *BalanceService
	AuditService    *AuditService

	// WalletCallTimeout дедлайн, которого хватает на все повторы WalletService. Ноль, если попытки не ограничены.
	WalletCallTimeout time.Duration
}

type FactoryArgs struct {
	IDs             IDGenerator
	Accounts        SystemAccounts
	TransferTimeout time.Duration
	Retries         int
}

func Factory(unitOfWork uow.UOW, args FactoryArgs, l *logrus.Logger) (*AppServices, error) {
	transferService, transferServiceErr := NewTransferService(unitOfWork, args.IDs, l)
	if transferServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", transferServiceErr.Error())
	}
	transferService.SetTimeout(args.TransferTimeout)

	balanceService, balanceServiceErr := NewBalanceService(unitOfWork)
	if balanceServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", balanceServiceErr.Error())
	}

	auditService, auditServiceErr := NewAuditService(unitOfWork)
	if auditServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", auditServiceErr.Error())
	}

	walletService := NewWalletService(transferService, args.IDs, args.Accounts, l).
		SetRetries(args.Retries)

	return &AppServices{
		TransferService: transferService,
		WalletService:   walletService,
		BalanceService:  balanceService,
		AuditService:    auditService,

		WalletCallTimeout: walletService.CallBudget(args.TransferTimeout),
	}, nil
}
