package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/middleware"
)

type errorBody struct {
	Error  string            `json:"error"`
	Code   apperr.Code       `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorHandler renders every error returned by a handler or middleware as
// {"error","code","fields"}. Coded errors are expected outcomes and are not
// logged; anything else is logged with the request ID and hidden behind a
// generic 500.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := describe(err)
		if body.Code == apperr.CodeInternal || body.Code == apperr.CodeStoreUnavailable {
			log.WithError(err).WithFields(logrus.Fields{
				"request_id": middleware.RequestIDOf(c),
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
			}).Error("request failed")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}

func describe(err error) (int, errorBody) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return apperr.HTTPStatus(ae.Code), errorBody{Error: ae.Message, Code: ae.Code, Fields: ae.Fields}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, errorBody{Error: msg, Code: codeForStatus(he.Code)}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: apperr.CodeInternal}
}

// codeForStatus classifies errors raised by echo itself (unknown route,
// oversized body, bad method).
func codeForStatus(status int) apperr.Code {
	switch status {
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusTooManyRequests:
		return apperr.CodeTooManyRequests
	case http.StatusServiceUnavailable:
		return apperr.CodeStoreUnavailable
	}
	if status >= 400 && status < 500 {
		return apperr.CodeInvalidInput
	}
	return apperr.CodeInternal
}
