package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/substrate/internal/database"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 100ms", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
}

func TestRunNowBypassesSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "manual", err: errors.New("boom")}

	err := s.RunNow(job)
	assert.Error(t, err)
	assert.EqualValues(t, 1, job.runs.Load())
}

func TestMaintenanceJobChecksBothDatabases(t *testing.T) {
	dir := t.TempDir()

	ledgerDB, err := database.New(database.Config{
		Path:    dir + "/ledger.db",
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	defer ledgerDB.Close()
	require.NoError(t, ledgerDB.Migrate())

	cacheDB, err := database.New(database.Config{
		Path:    dir + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	defer cacheDB.Close()
	require.NoError(t, cacheDB.Migrate())

	job := NewMaintenanceJob(ledgerDB, cacheDB, zerolog.Nop())
	assert.Equal(t, "db-maintenance", job.Name())
	assert.NoError(t, job.Run())
}

func TestMaintenanceJobToleratesMissingCache(t *testing.T) {
	dir := t.TempDir()

	ledgerDB, err := database.New(database.Config{
		Path:    dir + "/ledger.db",
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	defer ledgerDB.Close()

	job := NewMaintenanceJob(ledgerDB, nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}
