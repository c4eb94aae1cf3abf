package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/audit"
	"github.com/fsdevblog/groph-wallet/internal/config"
	"github.com/fsdevblog/groph-wallet/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-wallet/internal/repository/repoargs"
	"github.com/fsdevblog/groph-wallet/internal/service"
	"github.com/fsdevblog/groph-wallet/internal/service/idgen"
	"github.com/fsdevblog/groph-wallet/internal/transport/api"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"runAddress":      a.Config.RunAddress,
		"migrationsDir":   a.Config.MigrationsDir,
		"authEnabled":     a.Config.JWTSecret != "",
		"transferTimeout": a.Config.TransferTimeout,
		"lockTimeout":     a.Config.LockTimeout,
		"transferRetries": a.Config.TransferRetries,
		"auditInterval":   a.Config.AuditInterval,
	}).Info("Starting app")

	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := InitUOW(conn, a.Config.LockTimeout)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		IDs: idgen.New(),
		Accounts: service.SystemAccounts{
			Treasury: a.Config.TreasuryAccount,
			Bonus:    a.Config.BonusAccount,
			Revenue:  a.Config.RevenueAccount,
		},
		TransferTimeout: a.Config.TransferTimeout,
		Retries:         a.Config.TransferRetries,
	}, a.Logger)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router, routerErr := api.New(api.RouterArgs{
		Logger:         a.Logger,
		WalletService:  services.WalletService,
		BalanceService: services.BalanceService,
		WalletTimeout:  services.WalletCallTimeout,
		JWTSecretKey:   []byte(a.Config.JWTSecret),
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	if a.Config.AuditInterval > 0 {
		processor := audit.New(services.AuditService, a.Logger).
			SetWorkers(a.Config.AuditWorkers).
			SetBatchSize(a.Config.AuditBatch).
			SetInterval(a.Config.AuditInterval)

		go processor.Run(notifyCtx)
	}

	return a.serve(notifyCtx, router)
}

// serve держит HTTP сервер до отмены контекста, затем дожидается завершения текущих запросов.
func (a *App) serve(ctx context.Context, router *gin.Engine) error {
	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("http server shutdown")
		}
		return ctx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// InitUOW создает unit of work поверх пула и регистрирует в нем все репозитории.
func InitUOW(conn *pgxpool.Pool, lockTimeout time.Duration) (*uow.UnitOfWork, error) {
	unitOfWork, err := uow.NewUnitOfWork(conn,
		uow.WithLockTimeout(lockTimeout),
		uow.WithErrorConverter(pgrepo.ConvertTxErr),
	)
	if err != nil {
		return nil, fmt.Errorf("init UOW: %s", err.Error())
	}

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.AccountRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewAccountRepository(dbtx)
		},
		repoargs.AssetTypeRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewAssetTypeRepository(dbtx)
		},
		repoargs.BalanceRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewBalanceRepository(dbtx)
		},
		repoargs.TransactionRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewTransactionRepository(dbtx)
		},
		repoargs.LedgerEntryRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewLedgerEntryRepository(dbtx)
		},
	}
	for name, factory := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factory); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}

	return unitOfWork, nil
}
