package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gossipsearch/internal/search"
	"gossipsearch/models"
)

var searchesServed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "search_requests_total",
	Help: "Search requests answered successfully",
})

type SearchHandler struct {
	Service *search.Service
	History *HistoryLog
}

func (h *SearchHandler) Register(e *echo.Echo) {
	e.POST("/search", h.search)
}

// search rejects malformed requests before any embedding or store call is
// made; collaborator failures past that point surface as a server error.
func (h *SearchHandler) search(c echo.Context) error {
	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "query is required")
	}

	resp, err := h.Service.Search(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	searchesServed.Inc()

	if h.History != nil {
		h.History.Record(req.Query, len(resp.Results), resp.Metrics.ElapsedMS)
	}

	return c.JSON(http.StatusOK, resp)
}
