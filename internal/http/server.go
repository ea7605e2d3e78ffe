// README: API gateway; registers HTTP routes and delegates to the run
// handlers.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taxisim/internal/http/handlers"
	"taxisim/internal/http/middleware"
	"taxisim/internal/modules/sim"
	"taxisim/internal/store"
)

type ServerDeps struct {
	Runner *sim.Runner
	Store  *store.Store
}

type Server struct {
	runner *sim.Runner
	store  *store.Store
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		runner: deps.Runner,
		store:  deps.Store,
	}
}

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	runHandler := handlers.NewRunHandler(s.runner, s.store)
	r.POST("/api/runs", runHandler.Create)
	r.GET("/api/runs/:id", runHandler.Get)
	r.GET("/api/runs/:id/orders", runHandler.GetOrders)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}
