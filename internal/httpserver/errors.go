package httpserver

import (
	"errors"
	"net/http"

	"order-engine/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	StatusCode int           `json:"statusCode"`
	Message    string        `json:"message"`
	Errors     []errorDetail `json:"errors"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindCartNotFound:       http.StatusNotFound,
	domain.KindOrderNotFound:      http.StatusNotFound,
	domain.KindProductNotFound:    http.StatusUnprocessableEntity,
	domain.KindNoEligibleItems:    http.StatusUnprocessableEntity,
	domain.KindNoPurchasableItems: http.StatusUnprocessableEntity,
	domain.KindInvalidVoucher:     http.StatusUnprocessableEntity,
	domain.KindIllegalTransition:  http.StatusConflict,
	domain.KindStorageConflict:    http.StatusConflict,
	domain.KindMalformedCallback:  http.StatusBadRequest,
	domain.KindInvalidInput:       http.StatusBadRequest,
	domain.KindStorageUnavailable: http.StatusServiceUnavailable,
}

func statusFor(kind domain.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError renders err with a status chosen from its kind. Only the
// message of the outermost domain error is exposed.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if kind == "" {
		c.AbortWithStatusJSON(status, errorResponse{
			StatusCode: status,
			Message:    "internal server error",
			Errors:     []errorDetail{{Code: "InternalError", Message: "internal server error"}},
		})
		return
	}
	msg := string(kind)
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	c.AbortWithStatusJSON(status, errorResponse{
		StatusCode: status,
		Message:    msg,
		Errors:     []errorDetail{{Code: string(kind), Message: msg}},
	})
}

func badRequest(c *gin.Context, msg string) {
	writeError(c, domain.Errorf(domain.KindInvalidInput, "%s", msg))
}
