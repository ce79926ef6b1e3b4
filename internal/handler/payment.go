package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tableside/internal/dto"
	"tableside/internal/middleware"
	"tableside/internal/service"
)

type PaymentHandler struct {
	coordinator service.PaymentCoordinator
}

func NewPaymentHandler(coordinator service.PaymentCoordinator) *PaymentHandler {
	return &PaymentHandler{
		coordinator: coordinator,
	}
}

func (h *PaymentHandler) ListMethods(c echo.Context) error {
	ctx := c.Request().Context()

	methods, err := h.coordinator.ListMethods(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, methods)
}

func (h *PaymentHandler) SelectMethod(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}
	var req dto.SelectMethodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	method, err := h.coordinator.SelectMethod(ctx, tableID, req.MethodID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, method)
}

func (h *PaymentHandler) PayInstant(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}
	var req dto.PayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	orderID, err := h.coordinator.PayInstant(ctx, tableID, middleware.UserID(c), req.MethodID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.CheckoutResponse{OrderID: orderID})
}

func (h *PaymentHandler) BeginSession(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}
	var req dto.PayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	session, err := h.coordinator.Begin(ctx, tableID, middleware.UserID(c), req.MethodID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *PaymentHandler) GetSession(c echo.Context) error {
	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	session, ok := h.coordinator.Session(tableID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no payment session for table")
	}
	return c.JSON(http.StatusOK, session)
}

func (h *PaymentHandler) CancelSession(c echo.Context) error {
	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	h.coordinator.CancelSession(tableID)
	return c.NoContent(http.StatusNoContent)
}

func (h *PaymentHandler) Complete(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	if err := h.coordinator.Complete(ctx, tableID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
