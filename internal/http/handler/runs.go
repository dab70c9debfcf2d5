package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
	"sgxfeed/internal/service"
)

// TriggerRun godoc
// @Summary Run the pipeline
// @Description Fetches and stores every configured file for one business date.
// @Description Without a date the current business date is used.
// @Description Raw and reference objects keep the upstream file name, so keys carry the next business day stamp for TC-style files.
// @Description A date on which nothing was published returns 200 with success false. 502 means nothing was stored and a file failed.
// @Tags runs
// @Produce json
// @Param date query string false "Business date (YYYY-MM-DD, DD/MM/YYYY or DD Mon YYYY)"
// @Success 200 {object} model.RunReport
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 502 {object} model.RunReport
// @Router /runs [post]
func TriggerRun(svc service.IngestionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var date time.Time
		if raw := c.Query("date"); raw != "" {
			d, err := calendar.Parse(raw)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD, DD/MM/YYYY or DD Mon YYYY")
			}
			date = d
		} else {
			date = svc.CurrentBusinessDate()
		}

		report, err := svc.Run(c.UserContext(), date)
		if err != nil {
			if errors.Is(err, service.ErrRunInProgress) {
				return writeError(c, fiber.StatusConflict, "RUN_IN_PROGRESS", "a run is already in progress")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(runStatus(report)).JSON(report)
	}
}

// runStatus is 502 when nothing was stored and at least one file failed upstream or downstream.
// A date on which nothing was published is not an error.
func runStatus(r *model.RunReport) int {
	if r.Success {
		return fiber.StatusOK
	}
	if r.Counts()[model.OutcomeFailed] > 0 {
		return fiber.StatusBadGateway
	}
	return fiber.StatusOK
}
