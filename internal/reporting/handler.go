package reporting

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/revlens-lab/revlens/internal/core/errors"
	"github.com/revlens-lab/revlens/internal/core/period"
	"github.com/revlens-lab/revlens/internal/core/storage"
	"github.com/revlens-lab/revlens/internal/rollup"
)

// RegisterRoutes registers the reporting and operational routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/reports/daily/:date", s.HandleDailyReport)
	r.GET("/v1/reports/monthly/:month", s.HandleMonthlyTotals)
	r.GET("/v1/reports/top-customer", s.HandleTopCustomer)

	r.POST("/v1/admin/refresh/:period", s.HandleForceRefresh)
	r.GET("/v1/admin/refresh/:period/status", s.HandleRefreshStatus)
}

// HandleDailyReport handles GET /v1/reports/daily/:date
func (s *Service) HandleDailyReport(c *gin.Context) {
	resp, err := s.GetDailyReport(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleMonthlyTotals handles GET /v1/reports/monthly/:month
func (s *Service) HandleMonthlyTotals(c *gin.Context) {
	resp, err := s.GetMonthlyTotals(c.Request.Context(), c.Param("month"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleTopCustomer handles GET /v1/reports/top-customer?period=2024-03
// Without the period parameter it ranks across all committed periods.
func (s *Service) HandleTopCustomer(c *gin.Context) {
	resp, err := s.GetTopCustomer(c.Request.Context(), c.Query("period"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleForceRefresh handles POST /v1/admin/refresh/:period
func (s *Service) HandleForceRefresh(c *gin.Context) {
	if err := s.ForceRefresh(c.Request.Context(), c.Param("period")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed", "period": c.Param("period")})
}

// HandleRefreshStatus handles GET /v1/admin/refresh/:period/status
func (s *Service) HandleRefreshStatus(c *gin.Context) {
	resp, err := s.GetRefreshStatus(c.Request.Context(), c.Param("period"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, period.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidPeriodError,
			Message:   "Invalid reporting period",
			Details:   err.Error(),
		})
	case errors.Is(err, rollup.ErrConcurrentRefresh):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpRefreshInFlight,
			Message:   "Refresh already in flight for this period",
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpUpstreamUnavailable,
			Message:   "Upstream transaction store unavailable",
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to serve report",
			Details:   err.Error(),
		})
	}
}
