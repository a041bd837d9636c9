package handlers

import (
	"errors"
	"time"

	"fluxpay/internal/services/scan"
	"fluxpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type ScanHandler struct {
	job *scan.Job
}

func NewScanHandler(job *scan.Job) *ScanHandler {
	return &ScanHandler{job: job}
}

// Run triggers a daily scan over an explicit window, defaulting to the
// previous full UTC day.
func (h *ScanHandler) Run(c *fiber.Ctx) error {
	start, end := scan.PreviousDayWindow(time.Now())
	if q := c.Query("window_start"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			return response.BadRequest(c, "invalid window_start")
		}
		start = t
	}
	if q := c.Query("window_end"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			return response.BadRequest(c, "invalid window_end")
		}
		end = t
	}

	report, err := h.job.Run(c.Context(), start, end)
	if err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			return response.Conflict(c, "a scan is already running")
		}
		return response.ServerError(c, "scan failed")
	}
	return response.Success(c, report)
}
