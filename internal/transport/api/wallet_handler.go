package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/service"
	"github.com/fsdevblog/groph-wallet/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	svs     WalletServicer
	timeout time.Duration
}

func NewWalletHandler(svs WalletServicer, timeout time.Duration) *WalletHandler {
	if timeout <= 0 {
		timeout = DefaultServiceTimeout
	}
	return &WalletHandler{
		svs:     svs,
		timeout: timeout,
	}
}

type TopUpParams struct {
	AccountNumber  string          `binding:"required,account_number,max=50" json:"accountNumber"`
	AssetCode      string          `binding:"required,max=20"                json:"assetCode"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `binding:"omitempty,max_bytes=255"        json:"idempotencyKey"`
	Metadata       map[string]any  `json:"metadata"`
}

// TopUp POST RouteGroup + TopUpRoute. Покупка: казначейство -> пользователь.
func (h *WalletHandler) TopUp(c *gin.Context) {
	var params TopUpParams
	if !bindJSON(c, &params) {
		return
	}

	h.respond(c, func(ctx context.Context) (*domain.TransferResult, error) {
		return h.svs.TopUp(ctx, service.TopUpArgs{ //nolint:wrapcheck
			AccountNumber:  params.AccountNumber,
			AssetCode:      params.AssetCode,
			Amount:         params.Amount,
			IdempotencyKey: idempotencyKey(c, params.IdempotencyKey),
			Metadata:       params.Metadata,
		})
	})
}

type BonusParams struct {
	AccountNumber  string          `binding:"required,account_number,max=50" json:"accountNumber"`
	AssetCode      string          `binding:"required,max=20"                json:"assetCode"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `binding:"omitempty,max=1000"             json:"reason"`
	IdempotencyKey string          `binding:"omitempty,max_bytes=255"        json:"idempotencyKey"`
	Metadata       map[string]any  `json:"metadata"`
}

// Bonus POST RouteGroup + BonusRoute. Бонус: бонусный пул -> пользователь.
func (h *WalletHandler) Bonus(c *gin.Context) {
	var params BonusParams
	if !bindJSON(c, &params) {
		return
	}

	h.respond(c, func(ctx context.Context) (*domain.TransferResult, error) {
		return h.svs.IssueBonus(ctx, service.BonusArgs{ //nolint:wrapcheck
			AccountNumber:  params.AccountNumber,
			AssetCode:      params.AssetCode,
			Amount:         params.Amount,
			Reason:         params.Reason,
			IdempotencyKey: idempotencyKey(c, params.IdempotencyKey),
			Metadata:       params.Metadata,
		})
	})
}

type SpendParams struct {
	AccountNumber  string          `binding:"required,account_number,max=50" json:"accountNumber"`
	AssetCode      string          `binding:"required,max=20"                json:"assetCode"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `binding:"omitempty,max=1000"             json:"description"`
	IdempotencyKey string          `binding:"omitempty,max_bytes=255"        json:"idempotencyKey"`
	Metadata       map[string]any  `json:"metadata"`
}

// Spend POST RouteGroup + SpendRoute. Покупка внутри приложения: пользователь -> выручка.
func (h *WalletHandler) Spend(c *gin.Context) {
	var params SpendParams
	if !bindJSON(c, &params) {
		return
	}

	h.respond(c, func(ctx context.Context) (*domain.TransferResult, error) {
		return h.svs.Spend(ctx, service.SpendArgs{ //nolint:wrapcheck
			AccountNumber:  params.AccountNumber,
			AssetCode:      params.AssetCode,
			Amount:         params.Amount,
			Description:    params.Description,
			IdempotencyKey: idempotencyKey(c, params.IdempotencyKey),
			Metadata:       params.Metadata,
		})
	})
}

type TransferParams struct {
	FromAccount    string          `binding:"required,account_number,max=50" json:"fromAccount"`
	ToAccount      string          `binding:"required,account_number,max=50" json:"toAccount"`
	AssetCode      string          `binding:"required,max=20"                json:"assetCode"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `binding:"omitempty,max=1000"             json:"description"`
	IdempotencyKey string          `binding:"omitempty,max_bytes=255"        json:"idempotencyKey"`
	Metadata       map[string]any  `json:"metadata"`
}

// Transfer POST RouteGroup + TransferRoute. Перевод между произвольными счетами.
func (h *WalletHandler) Transfer(c *gin.Context) {
	var params TransferParams
	if !bindJSON(c, &params) {
		return
	}

	h.respond(c, func(ctx context.Context) (*domain.TransferResult, error) {
		return h.svs.Transfer(ctx, service.P2PArgs{ //nolint:wrapcheck
			FromAccount:    params.FromAccount,
			ToAccount:      params.ToAccount,
			AssetCode:      params.AssetCode,
			Amount:         params.Amount,
			Description:    params.Description,
			IdempotencyKey: idempotencyKey(c, params.IdempotencyKey),
			Metadata:       params.Metadata,
		})
	})
}

type TransactionResponse struct {
	ID             int64                  `json:"id"`
	TransactionID  string                 `json:"transactionId"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	Type           domain.TransactionType `json:"transactionType"`
	Status         string                 `json:"status"`
	FromAccountID  int64                  `json:"fromAccountId"`
	ToAccountID    int64                  `json:"toAccountId"`
	AssetTypeID    int64                  `json:"assetTypeId"`
	Amount         decimal.Decimal        `json:"amount"`
	Description    string                 `json:"description"`
	Metadata       map[string]any         `json:"metadata"`
	CreatedAt      time.Time              `json:"createdAt"`
	CompletedAt    time.Time              `json:"completedAt"`
}

// TransferResponse при повторном запросе заполнены только Success, Duplicate и Transaction.
type TransferResponse struct {
	Success       bool                 `json:"success"`
	Duplicate     bool                 `json:"duplicate"`
	TransactionID string               `json:"transactionId,omitempty"`
	Amount        *decimal.Decimal     `json:"amount,omitempty"`
	FromAccount   string               `json:"fromAccount,omitempty"`
	ToAccount     string               `json:"toAccount,omitempty"`
	AssetCode     string               `json:"assetCode,omitempty"`
	Transaction   *TransactionResponse `json:"transaction,omitempty"`
}

// respond выполняет вызов сервиса и отдает 201 для новой транзакции, 200 для повтора.
func (h *WalletHandler) respond(c *gin.Context, call func(ctx context.Context) (*domain.TransferResult, error)) {
	reqCtx, cancel := context.WithTimeout(c, h.timeout)
	defer cancel()

	result, err := call(reqCtx)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	if result.Duplicate {
		c.JSON(http.StatusOK, &TransferResponse{
			Success:     true,
			Duplicate:   true,
			Transaction: toTransactionResponse(result.Transaction),
		})
		return
	}

	c.JSON(http.StatusCreated, &TransferResponse{
		Success:       true,
		Duplicate:     false,
		TransactionID: result.TransactionID,
		Amount:        &result.Amount,
		FromAccount:   result.FromAccount,
		ToAccount:     result.ToAccount,
		AssetCode:     result.AssetCode,
	})
}

func toTransactionResponse(t *domain.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	return &TransactionResponse{
		ID:             t.ID,
		TransactionID:  t.TransactionID,
		IdempotencyKey: t.IdempotencyKey,
		Type:           t.Type,
		Status:         string(t.Status),
		FromAccountID:  t.FromAccountID,
		ToAccountID:    t.ToAccountID,
		AssetTypeID:    t.AssetTypeID,
		Amount:         t.Amount,
		Description:    t.Description,
		Metadata:       t.Metadata,
		CreatedAt:      t.CreatedAt,
		CompletedAt:    t.CompletedAt,
	}
}

// bindJSON разбирает тело запроса. При ошибке отвечает 400 и возвращает false.
func bindJSON(c *gin.Context, params any) bool {
	if bindErr := c.ShouldBindJSON(params); bindErr != nil {
		middlewares.AbortWithError(c, http.StatusBadRequest, bindErr, gin.ErrorTypeBind)
		return false
	}
	return true
}
