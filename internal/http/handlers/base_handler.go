// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taxisim/internal/modules/matching"
	"taxisim/internal/modules/reposition"
	"taxisim/internal/modules/sim"
	"taxisim/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sim.ErrBadTimeWindow),
		errors.Is(err, sim.ErrBadTaxiCount),
		errors.Is(err, matching.ErrUnknownStrategy),
		errors.Is(err, reposition.ErrUnknownStrategy):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrRunNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
