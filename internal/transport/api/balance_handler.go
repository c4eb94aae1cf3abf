package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BalanceHandler struct {
	svs BalanceServicer
}

func NewBalanceHandler(svs BalanceServicer) *BalanceHandler {
	return &BalanceHandler{
		svs: svs,
	}
}

type AssetBalanceResponse struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceResponse struct {
	AccountNumber string                 `json:"accountNumber"`
	Balances      []AssetBalanceResponse `json:"balances"`
}

// Balance GET RouteGroup + BalanceRoute.
func (b *BalanceHandler) Balance(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balances, err := b.svs.GetBalance(reqCtx, accountNumber)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := BalanceResponse{
		AccountNumber: accountNumber,
		Balances:      make([]AssetBalanceResponse, len(balances)),
	}
	for i, balance := range balances {
		response.Balances[i] = AssetBalanceResponse{
			Code:    balance.AssetCode,
			Name:    balance.AssetName,
			Balance: balance.Balance,
		}
	}
	c.JSON(http.StatusOK, &response)
}

type HistoryItemResponse struct {
	TransactionID string                 `json:"transactionId"`
	Type          domain.TransactionType `json:"transactionType"`
	Amount        decimal.Decimal        `json:"amount"`
	Description   string                 `json:"description"`
	CreatedAt     time.Time              `json:"createdAt"`
	AssetCode     string                 `json:"assetCode"`
	FromAccount   string                 `json:"fromAccount"`
	ToAccount     string                 `json:"toAccount"`
}

type HistoryResponse struct {
	AccountNumber string                `json:"accountNumber"`
	Transactions  []HistoryItemResponse `json:"transactions"`
}

// History GET RouteGroup + HistoryRoute. Нечисловой limit трактуется как отсутствующий.
func (b *BalanceHandler) History(c *gin.Context) {
	accountNumber := c.Param("accountNumber")
	limit, _ := strconv.Atoi(c.Query("limit"))

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	items, err := b.svs.GetHistory(reqCtx, accountNumber, limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := HistoryResponse{
		AccountNumber: accountNumber,
		Transactions:  make([]HistoryItemResponse, len(items)),
	}
	for i, item := range items {
		response.Transactions[i] = HistoryItemResponse{
			TransactionID: item.TransactionID,
			Type:          item.Type,
			Amount:        item.Amount,
			Description:   item.Description,
			CreatedAt:     item.CreatedAt,
			AssetCode:     item.AssetCode,
			FromAccount:   item.FromAccount,
			ToAccount:     item.ToAccount,
		}
	}
	c.JSON(http.StatusOK, &response)
}
