package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the HTTP surface. The chat protocol itself lives on
// the single WebSocket endpoint; everything else about accounts is another
// component's concern.
func (s *Server) RegisterRoutes() {
	s.E.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.E.GET("/ws", s.dispatcher.ServeWS)
}
