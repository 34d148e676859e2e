package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 3 * time.Second

// PoolStats is the pool snapshot the database health endpoint reports.
// EmptyWaits counts acquires that had to wait for a free connection; a
// growing value means the pool is undersized for the load.
type PoolStats struct {
	Total       int32  `json:"total"`
	Idle        int32  `json:"idle"`
	InUse       int32  `json:"in_use"`
	Max         int32  `json:"max"`
	Acquires    int64  `json:"acquires"`
	AcquireWait string `json:"acquire_wait"`
	EmptyWaits  int64  `json:"empty_waits"`
}

func snapshotPool(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		Total:       s.TotalConns(),
		Idle:        s.IdleConns(),
		InUse:       s.AcquiredConns(),
		Max:         s.MaxConns(),
		Acquires:    s.AcquireCount(),
		AcquireWait: s.AcquireDuration().String(),
		EmptyWaits:  s.EmptyAcquireCount(),
	}
}

// HealthHandler reports database liveness. A ping that fails within the
// timeout yields 503 so load balancers stop routing traffic here; the pool
// snapshot rides along either way for operators.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   snapshotPool(pool),
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"status": "healthy",
			"pool":   snapshotPool(pool),
		})
	}
}
