package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tableside/internal/dto"
	"tableside/internal/model"
	"tableside/internal/service"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func tableIDFromPath(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid table id")
	}
	return id, nil
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.Delta == 0 {
		req.Delta = 1
	}

	cart, err := h.cartService.AddOrIncrement(ctx, tableID, model.CartItem{
		ProductID:         req.ProductID,
		Name:              req.Name,
		UnitPrice:         req.UnitPrice,
		ImageRef:          req.ImageRef,
		AvailabilityLabel: req.AvailabilityLabel,
	}, req.Delta)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}
	productID, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	cart, err := h.cartService.Remove(ctx, tableID, productID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	cart, err := h.cartService.Load(ctx, tableID)
	if err != nil {
		return err
	}
	if cart == nil {
		return c.JSON(http.StatusOK, &model.PendingCart{TableID: tableID, Items: model.CartItems{}})
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	if err := h.cartService.Clear(ctx, tableID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
