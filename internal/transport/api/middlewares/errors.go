package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds подсказка клиенту для 503: повтор с тем же ключом идемпотентности безопасен.
const retryAfterSeconds = "1"

var statusTexts = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusNotFound:            "not found",
	http.StatusConflict:            "conflict",
	http.StatusUnprocessableEntity: "unprocessable entity",
	http.StatusServiceUnavailable:  "service temporarily unavailable, retry with the same idempotency key",
}

func statusErrorText(status int) string {
	if text, ok := statusTexts[status]; ok {
		return text
	}
	return "internal server error"
}

// AbortWithError прерывает цепочку, запоминая статус и ошибку. В отличие от gin.Context.AbortWithError заголовки
// не отправляются сразу, поэтому Errors еще может выставить Content-Type и Retry-After.
func AbortWithError(c *gin.Context, status int, err error, errType gin.ErrorType) {
	c.Status(status)
	_ = c.Error(err).SetType(errType)
	c.Abort()
}

// Errors отдает клиенту первую ошибку из контекста gin. Публичные ошибки уходят с исходным текстом, приватные
// заменяются текстом статуса. Формат JSON, если клиент явно не попросил text/plain.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// тело уже отдано обработчиком, ошибки остаются только для логов.
		if len(c.Errors) == 0 || c.Writer.Size() > 0 {
			return
		}

		status := c.Writer.Status()
		firstErr := c.Errors[0]
		msg := statusErrorText(status)
		if firstErr.IsType(gin.ErrorTypePublic) {
			msg = firstErr.Error()
		}

		if status == http.StatusServiceUnavailable {
			c.Header("Retry-After", retryAfterSeconds)
		}

		if strings.Contains(c.GetHeader("Accept"), "text/plain") {
			c.String(status, msg)
		} else {
			c.JSON(status, gin.H{"error": msg})
		}
		c.Abort()
	}
}
