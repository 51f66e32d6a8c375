package controllers

import (
	"net/http"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	pkgredis "github.com/GolfLocker/golf-locker-pos/pkg/redis"
)

type HealthController struct {
	db    *db.Client
	redis *pkgredis.Client
	log   *logger.Logger
}

func NewHealthController(database *db.Client, redis *pkgredis.Client, log *logger.Logger) *HealthController {
	return &HealthController{db: database, redis: redis, log: log}
}

func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports degraded with a 503 when either backing store is unreachable.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"db": "ok", "redis": "ok"}
	healthy := true

	if err := c.db.Ping(r.Context()); err != nil {
		checks["db"] = err.Error()
		healthy = false
	}
	if err := c.redis.Ping(r.Context()); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		c.log.Warn(r.Context(), "readiness check failed")
	}
	responses.WriteSuccess(w, status, checks)
}
