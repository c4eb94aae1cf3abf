package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/service"
)

type WalletServicer interface {
	TopUp(ctx context.Context, args service.TopUpArgs) (*domain.TransferResult, error)
	IssueBonus(ctx context.Context, args service.BonusArgs) (*domain.TransferResult, error)
	Spend(ctx context.Context, args service.SpendArgs) (*domain.TransferResult, error)
	Transfer(ctx context.Context, args service.P2PArgs) (*domain.TransferResult, error)
}

type BalanceServicer interface {
	GetBalance(ctx context.Context, accountNumber string) ([]domain.AssetBalance, error)
	GetHistory(ctx context.Context, accountNumber string, limit int) ([]domain.HistoryItem, error)
}
