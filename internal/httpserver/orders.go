package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"order-engine/internal/domain"
	"order-engine/internal/service/order"

	"github.com/gin-gonic/gin"
)

type orderHandlers struct {
	svc orderService
}

func (h *orderHandlers) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	o, err := h.svc.Create(c.Request.Context(), order.CreateInput{
		UserID:     req.UserID,
		CartID:     req.CartID,
		ProductIDs: req.ProductIDs,
		ShippingAddress: domain.ShippingAddress{
			Address: req.ShippingAddress.Address,
			City:    req.ShippingAddress.City,
			Country: req.ShippingAddress.Country,
		},
		Contact: domain.Contact{
			Name:  req.Contact.Name,
			Phone: req.Contact.Phone,
			Email: req.Contact.Email,
		},
		VoucherCode: req.VoucherCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*o))
}

func (h *orderHandlers) get(c *gin.Context) {
	o, err := h.svc.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*o))
}

func (h *orderHandlers) listByUser(c *gin.Context) {
	orders, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders))
}

func (h *orderHandlers) list(c *gin.Context) {
	f := order.ListFilter{
		Status: domain.OrderStatus(c.Query("status")),
		Range:  order.Range(c.Query("range")),
	}
	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, "limit must be an integer")
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		badRequest(c, "offset must be an integer")
		return
	}

	orders, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders))
}

func (h *orderHandlers) transition(apply func(ctx context.Context, orderID string) (*domain.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := apply(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(*o))
	}
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
