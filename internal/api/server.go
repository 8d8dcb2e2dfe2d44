// Package api exposes the booking coordinator over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"flightslot/internal/booking"
)

type Server struct {
	echo        *echo.Echo
	coordinator *booking.Coordinator
	view        booking.SlotView
	log         *zap.Logger
}

const DefaultShutdownTimeout = 10 * time.Second

func NewServer(
	coordinator *booking.Coordinator, view booking.SlotView, log *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		coordinator: coordinator,
		view:        view,
		log:         log.Named("api"),
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	e.POST("/bookings/:slotId", s.createBooking)
	e.DELETE("/bookings/:slotId/:bookingId", s.cancelBooking)
	e.GET("/slots/:participantId/:status", s.participantSlots)
	e.GET("/availability/:slotId", s.slotAvailability)
	e.POST("/availability/:slotId", s.markAvailable)
	e.DELETE("/availability/:slotId", s.unmarkAvailable)
	e.GET("/health", s.health)

	return s
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for in-process testing
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(
			_ echo.Context, v middleware.RequestLoggerValues,
		) error {
			s.log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	})
}
