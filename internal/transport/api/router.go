package api

import (
	"net/http"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultServiceTimeout верхняя граница на обработку запроса сервисным слоем, если роутеру не передан
	// собственный дедлайн.
	DefaultServiceTimeout = 15 * time.Second
)

const (
	HealthRoute   = "/health"
	RouteGroup    = "/api/wallet"
	TopUpRoute    = "/topup"
	BonusRoute    = "/bonus"
	SpendRoute    = "/spend"
	TransferRoute = "/transfer"
	BalanceRoute  = "/balance/:accountNumber"
	HistoryRoute  = "/history/:accountNumber"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	WalletService  WalletServicer
	BalanceService BalanceServicer
	// WalletTimeout дедлайн операций кошелька, должен покрывать все повторы. Ноль означает DefaultServiceTimeout.
	WalletTimeout time.Duration
	// JWTSecretKey если пуст, авторизация не требуется.
	JWTSecretKey []byte
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	walletHandler := NewWalletHandler(args.WalletService, args.WalletTimeout)
	balanceHandler := NewBalanceHandler(args.BalanceService)

	r.GET(HealthRoute, Health)

	api := r.Group(RouteGroup)
	if len(args.JWTSecretKey) > 0 {
		api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	}

	api.POST(TopUpRoute, walletHandler.TopUp)
	api.POST(BonusRoute, walletHandler.Bonus)
	api.POST(SpendRoute, walletHandler.Spend)
	api.POST(TransferRoute, walletHandler.Transfer)

	api.GET(BalanceRoute, balanceHandler.Balance)
	api.GET(HistoryRoute, balanceHandler.History)
	return r, nil
}

// Health GET HealthRoute.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
