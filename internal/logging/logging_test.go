package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/database/dbtest"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var info, errs bytes.Buffer
	infoH := slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	errH := slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError})

	logger := slog.New(NewMultiHandler(infoH, errH)).With("zone_id", "z1")
	logger.Info("zone created")
	logger.Error("zone stats refresh failed")

	assert.Equal(t, 2, bytes.Count(info.Bytes(), []byte("\n")))
	assert.Equal(t, 1, bytes.Count(errs.Bytes(), []byte("\n")))
	assert.Contains(t, errs.String(), `"zone_id":"z1"`)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsDeliveringWhenASinkFails(t *testing.T) {
	var out bytes.Buffer
	good := slog.NewJSONHandler(&out, nil)
	bad := failingHandler{Handler: slog.NewJSONHandler(&bytes.Buffer{}, nil)}

	h := NewMultiHandler(bad, good)
	rec := slog.NewRecord(time.Now(), slog.LevelError, "push gateway timeout", 0)
	err := h.Handle(context.Background(), rec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Contains(t, out.String(), "push gateway timeout")
}

func TestPGHandlerPersistsErrorRecords(t *testing.T) {
	db := dbtest.New(t)
	h := newPGHandler(db, time.Hour)

	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))

	logger := slog.New(h).With("request_id", "req-1")
	logger.Error("notification delivery failed",
		"user_id", "u1",
		"zone_id", "z1",
		"error", "gateway down",
		"attempt", 2,
	)
	h.Stop()

	require.Eventually(t, func() bool {
		var n int64
		db.Model(&models.SystemLog{}).Count(&n)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	var entry models.SystemLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "ERROR", entry.Level)
	require.NotNil(t, entry.ZoneID)
	assert.Equal(t, "z1", *entry.ZoneID)
	assert.Equal(t, "gateway down", entry.Error)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.EqualValues(t, 2, extra["attempt"])
}

func TestPruneDeletesExpiredRows(t *testing.T) {
	db := dbtest.New(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := uuid.New()

	require.NoError(t, db.Create(&[]models.SystemLog{
		{ID: uuid.New(), Timestamp: now.Add(-31 * 24 * time.Hour), Level: "ERROR"},
		{ID: uuid.New(), Timestamp: now.Add(-time.Hour), Level: "ERROR"},
	}).Error)
	require.NoError(t, db.Create(&[]models.UserLocationSample{
		{UserID: user, Latitude: 23.8, Longitude: 90.4, RecordedAt: now.Add(-91 * 24 * time.Hour)},
		{UserID: user, Latitude: 23.8, Longitude: 90.4, RecordedAt: now.Add(-24 * time.Hour)},
	}).Error)

	Prune(db, now, DefaultRetention())

	var logs, samples int64
	db.Model(&models.SystemLog{}).Count(&logs)
	db.Model(&models.UserLocationSample{}).Count(&samples)
	assert.EqualValues(t, 1, logs)
	assert.EqualValues(t, 1, samples)
}
