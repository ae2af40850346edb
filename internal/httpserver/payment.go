package httpserver

import (
	"net/http"
	"net/url"

	"order-engine/internal/service/payment"

	"github.com/gin-gonic/gin"
)

// PaymentRedirects are the storefront pages a customer returns to after the
// gateway.
type PaymentRedirects struct {
	Success string
	Cancel  string
	Failure string
}

// For picks the page for res and appends the order id and, for gateway
// errors, the raw response code.
func (r PaymentRedirects) For(res payment.Result) string {
	target := r.Failure
	switch res.Outcome {
	case payment.OutcomeSuccess:
		target = r.Success
	case payment.OutcomeCancelled:
		target = r.Cancel
	}

	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("orderId", res.OrderID)
	if res.Outcome == payment.OutcomeGatewayError {
		q.Set("code", res.ResponseCode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type paymentHandlers struct {
	svc       paymentService
	redirects PaymentRedirects
}

func (h *paymentHandlers) begin(c *gin.Context) {
	ref, err := h.svc.Begin(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": c.Param("orderId"), "transactionRef": ref})
}

// callback handles the customer's return from the gateway. The gateway echoes
// the transaction reference and its response code as query parameters.
func (h *paymentHandlers) callback(c *gin.Context) {
	res, err := h.svc.HandleCallback(c.Request.Context(), payment.Callback{
		TransactionRef: c.Query("vnp_TxnRef"),
		ResponseCode:   c.Query("vnp_ResponseCode"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.redirects.For(res))
}
