package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), logs
}

func TestGormLoggerTrace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM upload_transactions", 3 }

	t.Run("logs queries at info level", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Info)
		l.Trace(context.Background(), time.Now(), query, nil)

		entries := logs.FilterMessage("SQL Query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "SELECT * FROM upload_transactions", entries[0].ContextMap()["sql"])
		assert.Equal(t, int64(3), entries[0].ContextMap()["rows"])
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Silent)
		l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
		assert.Zero(t, logs.Len())
	})

	t.Run("errors are logged", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Error)
		l.Trace(context.Background(), time.Now(), query, errors.New("duplicate key"))

		entries := logs.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Error)
		l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())
	})

	t.Run("slow queries log a warning", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("request id from context is attached", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
		l.Trace(ctx, time.Now(), query, nil)

		entries := logs.FilterMessage("SQL Query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	})
}

func TestGormLoggerLogMode(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Warn)
	changed := l.LogMode(gormlogger.Silent)
	assert.NotSame(t, l, changed)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
