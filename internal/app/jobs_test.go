package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardvault/ledger-service/internal/domain"
)

func TestJobsSkipRunWhileLockHeld(t *testing.T) {
	repo := newFakeRepo()
	account := repo.addAccount(repo.addUser("amy@example.com"), "123456789012", true)
	tx := repo.addTransaction(account, domain.TypeDebit, domain.SubtypeCredit, 1000, domain.StatusPending, "Employer", time.Now().UTC())

	lock := NewLocalJobLock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := NewJobs(newTestService(repo), lock, logger)

	ctx := context.Background()
	acquired, err := lock.Acquire(ctx, settlementLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	jobs.SettlePending()

	stored, err := repo.FindTransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status, "an overlapping run must be skipped")

	require.NoError(t, lock.Release(ctx, settlementLockName))

	jobs.SettlePending()

	stored, err = repo.FindTransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestJobsReleaseLockAfterRun(t *testing.T) {
	repo := newFakeRepo()
	lock := NewLocalJobLock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := NewJobs(newTestService(repo), lock, logger)

	jobs.AccrueInterest()

	// If the run released its lock, a fresh acquisition succeeds.
	acquired, err := lock.Acquire(context.Background(), interestLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
