package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/optimode/emailfinder/types"
)

// ErrorHandler turns the last handler error into a JSON body. Input
// problems are 400, a request that ran out of time is 504, anything
// else is 500.
type ErrorHandler struct {
	Logger logrus.FieldLogger
}

func (e *ErrorHandler) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		err := ctx.Errors.Last()
		if err == nil {
			return
		}
		log := e.Logger
		if log == nil {
			log = logrus.StandardLogger()
		}
		log.WithError(err.Err).WithField("path", ctx.FullPath()).Info("error in handler")

		var inputErr *types.InputError
		switch {
		case errors.Is(err.Err, io.EOF):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "empty_request_params"})
		case err.Type == gin.ErrorTypeBind:
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_params"})
		case errors.As(err.Err, &inputErr):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error()})
		case errors.Is(err.Err, context.DeadlineExceeded):
			ctx.JSON(http.StatusGatewayTimeout, gin.H{"error": "request_timeout"})
		default:
			log.WithError(err.Err).Error("request failed")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}
