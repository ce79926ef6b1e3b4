package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"tableside/internal/apperr"
	"tableside/internal/handler"
	"tableside/internal/middleware"
)

type Server struct {
	echo *echo.Echo

	cartHandler    *handler.CartHandler
	tableHandler   *handler.TableHandler
	orderHandler   *handler.OrderHandler
	paymentHandler *handler.PaymentHandler
}

func NewServer(
	jwtSecret string,
	log *zap.Logger,
	cartHandler *handler.CartHandler,
	tableHandler *handler.TableHandler,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.HTTPErrorHandler = errorHandler(log)

	s := &Server{
		echo:           e,
		cartHandler:    cartHandler,
		tableHandler:   tableHandler,
		orderHandler:   orderHandler,
		paymentHandler: paymentHandler,
	}

	s.setupRoutes(jwtSecret)
	return s
}

func (s *Server) setupRoutes(jwtSecret string) {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := api.Group("", middleware.AuthMiddleware(jwtSecret))

	auth.GET("/tables", s.tableHandler.ListTables)
	auth.GET("/tables/:id", s.tableHandler.GetTable)

	// -------- cart --------
	auth.GET("/tables/:id/cart", s.cartHandler.GetCart)
	auth.POST("/tables/:id/cart/items", s.cartHandler.AddItem)
	auth.DELETE("/tables/:id/cart/items/:pid", s.cartHandler.RemoveItem)
	auth.DELETE("/tables/:id/cart", s.cartHandler.ClearCart)

	// -------- order lifecycle --------
	auth.POST("/tables/:id/checkout", s.orderHandler.Checkout)
	auth.POST("/tables/:id/cancel", s.orderHandler.Cancel)
	auth.GET("/orders/:id", s.orderHandler.GetOrder)

	// -------- payment --------
	auth.GET("/payment-methods", s.paymentHandler.ListMethods)
	auth.POST("/tables/:id/payment/method", s.paymentHandler.SelectMethod)
	auth.POST("/tables/:id/payment/instant", s.paymentHandler.PayInstant)
	auth.POST("/tables/:id/payment/begin", s.paymentHandler.BeginSession)
	auth.GET("/tables/:id/payment/session", s.paymentHandler.GetSession)
	auth.POST("/tables/:id/payment/cancel", s.paymentHandler.CancelSession)
	auth.POST("/tables/:id/payment/complete", s.paymentHandler.Complete)
}

// errorHandler maps the error taxonomy onto HTTP statuses. Validation
// failures never reached the network; auth failures tell the client to sign
// out; transport and backend failures surface as a notice without touching
// the local cart.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal error"

		var (
			httpErr *echo.HTTPError
			valErr  *apperr.ValidationError
			authErr *apperr.AuthError
			netErr  *apperr.NetworkError
			backErr *apperr.BackendError
		)
		switch {
		case errors.As(err, &httpErr):
			status = httpErr.Code
			msg = httpErrMessage(httpErr.Message)
		case errors.As(err, &valErr):
			status = http.StatusBadRequest
			msg = valErr.Msg
		case errors.As(err, &authErr):
			status = http.StatusUnauthorized
			msg = "session expired, please sign in again"
		case errors.As(err, &netErr):
			status = http.StatusBadGateway
			msg = "order service unreachable"
		case errors.As(err, &backErr):
			status = http.StatusBadGateway
			msg = backErr.Msg
		}

		if status >= 500 {
			log.Error("request failed",
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		if jsonErr := c.JSON(status, map[string]string{"message": msg}); jsonErr != nil {
			log.Error("write error response", zap.Error(jsonErr))
		}
	}
}

func httpErrMessage(m any) string {
	if s, ok := m.(string); ok {
		return s
	}
	return "request failed"
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
