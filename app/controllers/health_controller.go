package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/cafe/pkg/response"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type HealthController struct {
	checks map[string]Check
}

func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks}
}

// Health answers 200 when every probe passes and 503 otherwise.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := make(map[string]string, len(c.checks))
	healthy := true
	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			report[name] = err.Error()
			healthy = false
			continue
		}
		report[name] = "ok"
	}

	if !healthy {
		response.Fail(w, http.StatusServiceUnavailable, "Service unavailable", report)
		return
	}
	response.Success(w, report)
}
