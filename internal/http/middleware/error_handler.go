package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/engineer-market-backend/internal/logger"
	"github.com/ignatzorin/engineer-market-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно: код и статус берутся
// из AppError, внутренние ошибки маскируются и уходят только в лог.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.HTTPStatus >= http.StatusInternalServerError && logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"code":   appErr.Code,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).WithError(err).Error("ошибка обработки запроса")
			}

			message := appErr.Message
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				message = "внутренняя ошибка сервера"
			}
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": message,
				"code":  appErr.Code,
			})
			return
		}

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).WithError(err).Error("необработанная ошибка")
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "внутренняя ошибка сервера",
			"code":  apperror.ErrCodeInternal,
		})
	}
}
