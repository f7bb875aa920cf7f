package helpers

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/session"
	"bidbot/utils"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, biddingerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for item"
	case errors.Is(err, biddingerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusOK, "no items found for user"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidItem):
		return http.StatusBadRequest, "invalid item details"
	case errors.Is(err, biddingerrors.ErrInvalidAccount):
		return http.StatusBadRequest, "invalid account details"
	case errors.Is(err, biddingerrors.ErrAuctionClosed):
		return http.StatusBadRequest, "auction closed"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrStaleBid):
		return http.StatusConflict, "bid outpaced by a concurrent bid, retry with the current bid"
	case errors.Is(err, biddingerrors.ErrItemHasBids):
		return http.StatusConflict, "item already has bids"
	case errors.Is(err, biddingerrors.ErrEmailExists):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, biddingerrors.ErrNotBidOwner):
		return http.StatusForbidden, "bid belongs to another bidder"
	case errors.Is(err, biddingerrors.ErrNotItemOwner):
		return http.StatusForbidden, "item belongs to another user"
	case errors.Is(err, biddingerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, biddingerrors.ErrSessionNotFound), errors.Is(err, biddingerrors.ErrSessionExpired):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, biddingerrors.ErrInternal):
		return http.StatusServiceUnavailable, "storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// HandleServiceError responds with the mapped status and logs the failure.
// Server-side failures are logged as errors, client mistakes as warnings.
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	logFields := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		logFields[k] = v
	}
	logFields["handler"] = handlerName
	logFields["error"] = err.Error()

	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+message, logFields)
		return
	}
	utils.Warn(handlerName+": "+message, logFields)
}

// CurrentUser returns the identity of the authenticated caller
func CurrentUser(c *gin.Context) (string, bool) {
	s, ok := session.FromContext(c.Request.Context())
	if !ok {
		return "", false
	}
	return s.UserID, true
}

// RequireUser returns the caller's identity or responds 401
func RequireUser(c *gin.Context, handlerName string) (string, bool) {
	userID, ok := CurrentUser(c)
	if !ok {
		HandleServiceError(c, handlerName, biddingerrors.ErrSessionNotFound, nil)
		return "", false
	}
	return userID, true
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
