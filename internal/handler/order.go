package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tableside/internal/dto"
	"tableside/internal/middleware"
	"tableside/internal/service"
)

type OrderHandler struct {
	orderService service.OrderService
	coordinator  service.PaymentCoordinator
}

func NewOrderHandler(orderService service.OrderService, coordinator service.PaymentCoordinator) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		coordinator:  coordinator,
	}
}

func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	orderID, err := h.orderService.Checkout(ctx, tableID, middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.CheckoutResponse{OrderID: orderID})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.orderService.GetOrderDetail(ctx, orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	// an in-flight payment session dies with the order
	h.coordinator.CancelSession(tableID)

	if err := h.orderService.Cancel(ctx, tableID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
