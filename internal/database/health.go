package database

import (
	"context"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReport is the dependency status returned by the health endpoint.
type HealthReport struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Check pings PostgreSQL and Redis with a short timeout each.
// redisPing is typically rdb.Ping(ctx).Err wrapped in a closure.
func Check(ctx context.Context, db Pinger, redisPing func(ctx context.Context) error) HealthReport {
	report := HealthReport{Status: "ok", Database: "up", Redis: "up"}

	dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ping(dbCtx); err != nil {
		report.Status = "degraded"
		report.Database = "down"
	}

	rCtx, rCancel := context.WithTimeout(ctx, 2*time.Second)
	defer rCancel()
	if err := redisPing(rCtx); err != nil {
		report.Status = "degraded"
		report.Redis = "down"
	}

	return report
}
