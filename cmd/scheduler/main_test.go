package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/service"
)

type stubReconciler struct {
	report *service.ReconcileReport
	err    error
	runs   int
}

func (s *stubReconciler) Run(ctx context.Context) (*service.ReconcileReport, error) {
	s.runs++
	return s.report, s.err
}

func testConfig(schedule string) *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{ReconcileSchedule: schedule, Timezone: "UTC"},
	}
}

func TestNewScheduler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	c, err := newScheduler(testConfig("0 0 * * * *"), &stubReconciler{report: &service.ReconcileReport{}}, log)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = newScheduler(testConfig("every hour"), &stubReconciler{}, log)
	assert.Error(t, err)
}

func TestReconcile_LogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	clean := &stubReconciler{report: &service.ReconcileReport{}}
	reconcile(clean, log)
	assert.Equal(t, 1, clean.runs)
	assert.Empty(t, buf.String())

	dirty := &stubReconciler{report: &service.ReconcileReport{
		Discrepancies: []service.Discrepancy{{Kind: service.DiscrepancyWalletCache}},
	}}
	reconcile(dirty, log)
	assert.Contains(t, buf.String(), "ledger discrepancies found")

	buf.Reset()
	reconcile(&stubReconciler{err: errors.New("store down")}, log)
	assert.Contains(t, buf.String(), "reconciliation failed")
}
