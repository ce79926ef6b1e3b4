package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tableside/internal/client"
	"tableside/internal/dto"
	"tableside/internal/model"
	"tableside/internal/repository"
	"tableside/internal/service"
)

type TableHandler struct {
	orderClient client.OrderServiceClient
	cartRepo    repository.CartRepository
}

func NewTableHandler(orderClient client.OrderServiceClient, cartRepo repository.CartRepository) *TableHandler {
	return &TableHandler{
		orderClient: orderClient,
		cartRepo:    cartRepo,
	}
}

func (h *TableHandler) toView(c echo.Context, table *model.Table) (*dto.TableView, error) {
	ctx := c.Request().Context()
	hasItems, err := h.cartRepo.HasItems(ctx, table.ID)
	if err != nil {
		return nil, err
	}
	return &dto.TableView{
		ID:              table.ID,
		Number:          table.Number,
		Capacity:        table.Capacity,
		PersistedStatus: string(table.Status),
		DisplayStatus:   string(service.ProjectTableStatus(table.Status, hasItems)),
		Description:     table.Description,
	}, nil
}

func (h *TableHandler) ListTables(c echo.Context) error {
	ctx := c.Request().Context()

	tables, err := h.orderClient.ListTables(ctx)
	if err != nil {
		return err
	}

	views := make([]*dto.TableView, len(tables))
	for i := range tables {
		view, err := h.toView(c, &tables[i])
		if err != nil {
			return err
		}
		views[i] = view
	}
	return c.JSON(http.StatusOK, views)
}

func (h *TableHandler) GetTable(c echo.Context) error {
	ctx := c.Request().Context()

	tableID, err := tableIDFromPath(c)
	if err != nil {
		return err
	}

	table, err := h.orderClient.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	view, err := h.toView(c, table)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}
