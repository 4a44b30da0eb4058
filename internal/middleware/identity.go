package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/model"
)

// Context keys set by JWTAuth and RequestID.
const (
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeyRequestID = "request_id"
)

// CurrentUser returns the authenticated caller, if any.
func CurrentUser(c echo.Context) (uint64, model.Role, bool) {
	id, ok := c.Get(KeyUserID).(uint64)
	if !ok || id == 0 {
		return 0, "", false
	}
	role, _ := c.Get(KeyRole).(model.Role)
	return id, role, true
}

// RequestIDOf returns the request ID assigned by RequestID.
func RequestIDOf(c echo.Context) string {
	s, _ := c.Get(KeyRequestID).(string)
	return s
}

// userID is the caller ID as a key fragment, "guest" when anonymous.
func userID(c echo.Context) string {
	if id, _, ok := CurrentUser(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
