/**
 * @description
 * The interest accrual job. It aggregates completed transaction amounts per user,
 * filters to strictly positive totals, stages one completed interest transaction per
 * user, and inserts the whole batch with unordered semantics: a failure on one record
 * does not prevent the others from being attempted.
 */

package app

import (
	"context"
	"time"

	"github.com/cardvault/ledger-service/internal/domain"
)

// InterestReport summarizes one accrual run.
type InterestReport struct {
	UsersConsidered int `json:"users_considered"`
	PayoutsStaged   int `json:"payouts_staged"`
	Inserted        int `json:"inserted"`
}

// AccrueInterest pays interest on every positive per-user completed balance.
func (s *Service) AccrueInterest(ctx context.Context) (*InterestReport, error) {
	balances, err := s.repo.CompletedBalancesByUser(ctx)
	if err != nil {
		s.logger.Error("failed to aggregate completed balances", "error", err)
		return nil, domain.NewSystemError(err)
	}

	report := &InterestReport{UsersConsidered: len(balances)}
	now := time.Now().UTC()

	var staged []*domain.Transaction
	for _, ub := range balances {
		if ub.TotalCents <= 0 {
			continue
		}
		amount := domain.RoundRate(ub.TotalCents, s.cfg.InterestRate)
		if amount <= 0 {
			continue
		}
		desc := "Interest on balance " + domain.FormatAmount(ub.TotalCents)
		staged = append(staged, &domain.Transaction{
			ID:          domain.NewTransactionID(),
			Date:        now,
			Type:        domain.TypeDebit,
			Subtype:     domain.SubtypeInterest,
			AmountCents: amount,
			Status:      domain.StatusCompleted,
			Vendor:      interestVendor,
			Description: &desc,
			AccountID:   ub.AccountID,
			UserID:      ub.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	report.PayoutsStaged = len(staged)
	if len(staged) == 0 {
		s.logger.Info("interest run finished, nothing to pay", "users_considered", report.UsersConsidered)
		return report, nil
	}

	inserted, err := s.repo.CreateTransactionsUnordered(ctx, staged)
	report.Inserted = inserted
	s.metrics.InterestPaid(inserted)

	if err != nil {
		if inserted == 0 {
			s.logger.Error("interest bulk insert failed entirely", "staged", report.PayoutsStaged, "error", err)
			return nil, domain.NewSystemError(err)
		}
		// Unordered semantics: partial success stands, the failures are logged.
		s.logger.Error("interest bulk insert partially failed", "staged", report.PayoutsStaged, "inserted", inserted, "error", err)
	}

	s.logger.Info("interest run finished",
		"users_considered", report.UsersConsidered,
		"payouts_staged", report.PayoutsStaged,
		"inserted", report.Inserted,
	)
	if err := s.events.Publish(ctx, "interest.accrued", report); err != nil {
		s.logger.Warn("failed to publish interest event", "error", err)
	}
	return report, nil
}
