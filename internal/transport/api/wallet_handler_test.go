package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/logger"
	"github.com/fsdevblog/groph-wallet/internal/service"
	"github.com/fsdevblog/groph-wallet/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-wallet/internal/transport/api/testutils"
	"github.com/fsdevblog/groph-wallet/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type WalletHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockWalletService *mocks.MockWalletServicer
	jwtSecret         []byte
	jwtToken          string
}

func TestWalletHandlerSuite(t *testing.T) {
	suite.Run(t, new(WalletHandlerTestSuite))
}

func (s *WalletHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.mockWalletService = mocks.NewMockWalletServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	token, err := tokens.GenerateClientJWT("checkout", time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	s.jwtToken = token

	router, err := New(RouterArgs{
		Logger:        logger.New(os.Stdout, ""),
		WalletService: s.mockWalletService,
		JWTSecretKey:  s.jwtSecret,
	})
	s.Require().NoError(err)
	s.router = router
}

func (s *WalletHandlerTestSuite) post(route string, payload any, opts ...func(*testutils.RequestOptions)) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	opts = append([]func(*testutils.RequestOptions){
		testutils.WithHeader("Content-Type", "application/json"),
		testutils.WithBearer(s.jwtToken),
	}, opts...)

	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + route,
		Body:   bytes.NewReader(body),
	}, opts...)
	s.Require().NoError(err)
	return res
}

func (s *WalletHandlerTestSuite) decode(res *http.Response) map[string]any {
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()
	raw, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	var out map[string]any
	s.Require().NoError(json.Unmarshal(raw, &out), string(raw))
	return out
}

func (s *WalletHandlerTestSuite) TestTopUp() {
	key := gofakeit.UUID()

	s.mockWalletService.EXPECT().
		TopUp(gomock.Any(), service.TopUpArgs{
			AccountNumber:  "USER-001",
			AssetCode:      "CREDITS",
			Amount:         decimal.RequireFromString("100.5"),
			IdempotencyKey: key,
			Metadata:       map[string]any{"orderId": "A-1"},
		}).
		Return(&domain.TransferResult{
			TransactionID: "TXN-1-abcdef01",
			Amount:        decimal.RequireFromString("100.5"),
			FromAccount:   "SYS-TREASURY-001",
			ToAccount:     "USER-001",
			AssetCode:     "CREDITS",
		}, nil)

	res := s.post(TopUpRoute, map[string]any{
		"accountNumber":  "USER-001",
		"assetCode":      "CREDITS",
		"amount":         "100.5",
		"idempotencyKey": key,
		"metadata":       map[string]any{"orderId": "A-1"},
	})
	s.Equal(http.StatusCreated, res.StatusCode)

	body := s.decode(res)
	s.Equal(true, body["success"])
	s.Equal(false, body["duplicate"])
	s.Equal("TXN-1-abcdef01", body["transactionId"])
	s.Equal("100.5", body["amount"])
	s.Equal("SYS-TREASURY-001", body["fromAccount"])
}

func (s *WalletHandlerTestSuite) TestDuplicate() {
	key := gofakeit.UUID()
	stored := &domain.Transaction{
		ID:             3,
		TransactionID:  "TXN-1-abcdef01",
		IdempotencyKey: key,
		Type:           domain.TransactionTypeSpend,
		Status:         domain.TransactionStatusCompleted,
		Amount:         decimal.NewFromInt(30),
	}

	// Ключ берется из заголовка, если в теле его нет.
	s.mockWalletService.EXPECT().
		Spend(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, args service.SpendArgs) (*domain.TransferResult, error) {
			s.Equal(key, args.IdempotencyKey)
			return &domain.TransferResult{Duplicate: true, Transaction: stored}, nil
		})

	res := s.post(SpendRoute, map[string]any{
		"accountNumber": "USER-001",
		"assetCode":     "CREDITS",
		"amount":        30,
	}, testutils.WithHeader(IdempotencyKeyHeader, key))
	s.Equal(http.StatusOK, res.StatusCode)

	body := s.decode(res)
	s.Equal(true, body["duplicate"])
	transaction, ok := body["transaction"].(map[string]any)
	s.Require().True(ok)
	s.Equal("TXN-1-abcdef01", transaction["transactionId"])
	s.Nil(body["transactionId"])
}

func (s *WalletHandlerTestSuite) TestErrorStatuses() {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid", err: fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput), wantStatus: http.StatusBadRequest},
		{name: "not_found", err: fmt.Errorf("account `X`: %w", domain.ErrRecordNotFound), wantStatus: http.StatusNotFound},
		{name: "insufficient", err: domain.ErrInsufficientFunds, wantStatus: http.StatusUnprocessableEntity},
		{name: "duplicate_key", err: domain.ErrDuplicateKey, wantStatus: http.StatusConflict},
		{name: "transient", err: domain.ErrTransient, wantStatus: http.StatusServiceUnavailable},
		{name: "unknown", err: domain.ErrUnknown, wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range cases {
		s.Run(tt.name, func() {
			s.mockWalletService.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			res := s.post(TransferRoute, map[string]any{
				"fromAccount": "USER-001",
				"toAccount":   "USER-002",
				"assetCode":   "CREDITS",
				"amount":      "1",
			})
			s.Equal(tt.wantStatus, res.StatusCode)
			// Result отдает заголовки на момент отправки статуса.
			s.Contains(res.Header.Get("Content-Type"), "application/json")
			if tt.wantStatus == http.StatusServiceUnavailable {
				s.Equal("1", res.Header.Get("Retry-After"))
			}
			body := s.decode(res)
			s.NotEmpty(body["error"])
		})
	}
}

func (s *WalletHandlerTestSuite) TestBadRequests() {
	// Сервис не вызывается.
	s.mockWalletService.EXPECT().IssueBonus(gomock.Any(), gomock.Any()).Times(0)

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{name: "missing_account", payload: map[string]any{"assetCode": "BONUS_POINTS", "amount": 1}},
		{name: "missing_asset", payload: map[string]any{"accountNumber": "USER-001", "amount": 1}},
		{name: "account_with_spaces", payload: map[string]any{
			"accountNumber": "USER 001", "assetCode": "BONUS_POINTS", "amount": 1,
		}},
		{name: "key_too_long", payload: map[string]any{
			"accountNumber": "USER-001", "assetCode": "BONUS_POINTS", "amount": 1,
			"idempotencyKey": testutils.GenerateOverBytesUnderRunes(100),
		}},
		{name: "key_over_255_bytes", payload: map[string]any{
			"accountNumber": "USER-001", "assetCode": "BONUS_POINTS", "amount": 1,
			"idempotencyKey": testutils.GenerateIdempotencyKey(256),
		}},
		{name: "amount_not_a_number", payload: map[string]any{
			"accountNumber": "USER-001", "assetCode": "BONUS_POINTS", "amount": "ten",
		}},
	}
	for _, tt := range cases {
		s.Run(tt.name, func() {
			res := s.post(BonusRoute, tt.payload)
			defer func() {
				s.Require().NoError(res.Body.Close())
			}()
			s.Equal(http.StatusBadRequest, res.StatusCode)
			s.Contains(res.Header.Get("Content-Type"), "application/json")
		})
	}
}

func (s *WalletHandlerTestSuite) TestUnauthorized() {
	s.mockWalletService.EXPECT().TopUp(gomock.Any(), gomock.Any()).Times(0)

	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + TopUpRoute,
		Body:   bytes.NewReader([]byte(`{"accountNumber":"USER-001","assetCode":"CREDITS","amount":1}`)),
	}, testutils.WithHeader("Content-Type", "application/json"))
	s.Require().NoError(err)
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()
	s.Equal(http.StatusUnauthorized, res.StatusCode)
}

func (s *WalletHandlerTestSuite) TestHealth() {
	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    HealthRoute,
	})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, res.StatusCode)
	body := s.decode(res)
	s.Equal("ok", body["status"])
}

func (s *WalletHandlerTestSuite) TestWalletTimeout() {
	cases := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "from_retry_budget", timeout: 40 * time.Second, want: 40 * time.Second},
		{name: "default", timeout: 0, want: DefaultServiceTimeout},
	}
	for _, tt := range cases {
		s.Run(tt.name, func() {
			router, err := New(RouterArgs{
				WalletService: s.mockWalletService,
				WalletTimeout: tt.timeout,
			})
			s.Require().NoError(err)

			started := time.Now()
			s.mockWalletService.EXPECT().TopUp(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, _ service.TopUpArgs) (*domain.TransferResult, error) {
					deadline, ok := ctx.Deadline()
					s.Require().True(ok)
					s.WithinDuration(started.Add(tt.want), deadline, time.Second)
					return &domain.TransferResult{TransactionID: "TXN-1"}, nil
				})

			res, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: router,
				Method: http.MethodPost,
				URL:    RouteGroup + TopUpRoute,
				Body:   bytes.NewReader([]byte(`{"accountNumber":"USER-001","assetCode":"CREDITS","amount":1}`)),
			}, testutils.WithHeader("Content-Type", "application/json"))
			s.Require().NoError(err)
			defer func() {
				s.Require().NoError(res.Body.Close())
			}()
			s.Equal(http.StatusCreated, res.StatusCode)
		})
	}
}
