package store

// logger.go sends gorm's logging to zerolog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gormLogger struct {
	log   zerolog.Logger
	level logger.LogLevel
	slow  time.Duration // queries taking longer are logged as warnings (0 = never)
}

// NewLogger returns a gorm logger that writes SQL traces at debug level and slow queries as warnings.
// If a request logger has been attached to the context (zerolog.Logger.WithContext) it is used instead
// of log so that database messages carry the request's fields.
func NewLogger(log zerolog.Logger, slow time.Duration) logger.Interface {
	return &gormLogger{log: log, level: logger.Info, slow: slow}
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	r := *g
	r.level = level
	return &r
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		g.from(ctx).Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		g.from(ctx).Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		g.from(ctx).Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	l := g.from(ctx)

	switch {
	case err != nil && g.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case g.slow > 0 && elapsed > g.slow && g.level >= logger.Warn:
		sql, rows := fc()
		l.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case g.level >= logger.Info && l.GetLevel() <= zerolog.DebugLevel:
		sql, rows := fc()
		l.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}

func (g *gormLogger) from(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &g.log
}
