package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

// gormLogger routes GORM diagnostics into the structured logger. Failed statements are
// logged as errors (record-not-found excluded) and statements slower than slowThreshold
// as warnings; everything else stays silent unless the level is raised to Info.
type gormLogger struct {
	logg          *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(logg *logger.Logger, slowThreshold time.Duration) gormlogger.Interface {
	return &gormLogger{logg: logg, level: gormlogger.Warn, slowThreshold: slowThreshold}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.logg.Error(g.fields(ctx, sql, rows, elapsed), "db.query.failed", err)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.logg.Warn(g.fields(ctx, sql, rows, elapsed), "db.query.slow")
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logg.Debug(g.fields(ctx, sql, rows, elapsed), "db.query")
	}
}

func (g *gormLogger) fields(ctx context.Context, sql string, rows int64, elapsed time.Duration) context.Context {
	return g.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	})
}
