package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyKey ключ из тела запроса, а если его нет - из заголовка IdempotencyKeyHeader. Пустая строка означает
// что ключ сгенерирует сервис.
func idempotencyKey(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(IdempotencyKeyHeader)
}

// abortWithServiceError переводит ошибку сервисного слоя в HTTP статус. Текст бизнес-ошибок отдается клиенту,
// внутренние ошибки скрываются.
func abortWithServiceError(c *gin.Context, err error) {
	var (
		status  int
		errType = gin.ErrorTypePublic
	)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateKey):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTransient):
		status = http.StatusServiceUnavailable
		errType = gin.ErrorTypePrivate
	default:
		status = http.StatusInternalServerError
		errType = gin.ErrorTypePrivate
	}
	middlewares.AbortWithError(c, status, err, errType)
}
