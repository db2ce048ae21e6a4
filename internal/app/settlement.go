/**
 * @description
 * The settlement engine. On every run it walks all pending transactions, grouped by
 * account and ordered oldest first, and moves each one to completed or failed based on
 * a running balance seeded from the account's current balance. Completed eligible
 * purchases trigger cashback; an account left negative after settlement is charged an
 * overdraft fee, subject to a cooldown.
 *
 * Failure semantics: every per-transaction and per-account failure is logged and
 * skipped so a bad record cannot halt the batch. Only the initial enumeration of
 * pending work is invocation-fatal.
 */

package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardvault/ledger-service/internal/domain"
)

// SettlementReport summarizes one settlement run.
type SettlementReport struct {
	PendingSeen         int `json:"pending_seen"`
	Completed           int `json:"completed"`
	Failed              int `json:"failed"`
	Cashbacks           int `json:"cashbacks"`
	OverdraftFees       int `json:"overdraft_fees"`
	SkippedAccounts     int `json:"skipped_accounts"`
	SkippedTransactions int `json:"skipped_transactions"`
}

// SettlePending settles every pending transaction. Safe to invoke repeatedly: the
// per-transaction conditional claim makes double-settlement a no-op.
func (s *Service) SettlePending(ctx context.Context) (*SettlementReport, error) {
	pending, err := s.repo.FindPendingTransactions(ctx)
	if err != nil {
		s.logger.Error("failed to enumerate pending transactions", "error", err)
		return nil, domain.NewSystemError(err)
	}

	report := &SettlementReport{PendingSeen: len(pending)}
	if len(pending) == 0 {
		return report, nil
	}

	groups, order := groupByAccount(pending)
	for _, accountID := range order {
		s.settleAccountGroup(ctx, accountID, groups[accountID], report)
	}

	s.logger.Info("settlement run finished",
		"pending_seen", report.PendingSeen,
		"completed", report.Completed,
		"failed", report.Failed,
		"cashbacks", report.Cashbacks,
		"overdraft_fees", report.OverdraftFees,
		"skipped_accounts", report.SkippedAccounts,
		"skipped_transactions", report.SkippedTransactions,
	)
	if err := s.events.Publish(ctx, "settlement.finished", report); err != nil {
		s.logger.Warn("failed to publish settlement event", "error", err)
	}
	return report, nil
}

// groupByAccount partitions pending transactions by account, preserving the date-then-id
// order within each group and a stable account processing order.
func groupByAccount(txs []domain.Transaction) (map[uuid.UUID][]domain.Transaction, []uuid.UUID) {
	groups := make(map[uuid.UUID][]domain.Transaction)
	var order []uuid.UUID
	for _, tx := range txs {
		if _, seen := groups[tx.AccountID]; !seen {
			order = append(order, tx.AccountID)
		}
		groups[tx.AccountID] = append(groups[tx.AccountID], tx)
	}
	return groups, order
}

func (s *Service) settleAccountGroup(ctx context.Context, accountID uuid.UUID, txs []domain.Transaction, report *SettlementReport) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		s.logger.Error("skipping account group, account load failed", "account_id", accountID, "error", err)
		report.SkippedAccounts++
		return
	}

	balance, err := s.repo.AccountBalances(ctx, accountID)
	if err != nil {
		s.logger.Error("skipping account group, balance snapshot failed", "account_id", accountID, "error", err)
		report.SkippedAccounts++
		return
	}

	running := balance.CurrentCents
	for i := range txs {
		tx := &txs[i]

		status := domain.StatusCompleted
		if tx.Type == domain.TypeWithdrawal && running+tx.AmountCents < s.cfg.OverdraftFloorCents {
			status = domain.StatusFailed
		}

		claimed, err := s.repo.SettleTransaction(ctx, tx.ID, status)
		if err != nil {
			// Fail forward: one bad record must not block the rest of the group.
			s.logger.Error("failed to persist settlement status", "transaction_id", tx.ID, "status", status, "error", err)
			report.SkippedTransactions++
			continue
		}
		if !claimed {
			s.logger.Info("transaction already settled elsewhere", "transaction_id", tx.ID)
			report.SkippedTransactions++
			continue
		}
		tx.Status = status
		s.metrics.TransactionSettled(string(status))

		if status == domain.StatusFailed {
			report.Failed++
			continue
		}

		running += tx.AmountCents
		report.Completed++

		if tx.Type == domain.TypeWithdrawal && tx.Subtype == domain.SubtypePurchase && s.cfg.CashbackVendor(tx.Vendor) {
			cashback, cbErr := s.CreateCashbackTransaction(ctx, tx)
			if cbErr != nil {
				// Best effort: the settlement itself stands even if the bonus fails.
				s.logger.Error("cashback creation failed", "transaction_id", tx.ID, "error", cbErr)
			} else if cashback != nil {
				report.Cashbacks++
				s.metrics.CashbackCreated()
			}
		}
	}

	if running < 0 && s.overdraftFeeDue(account, time.Now().UTC()) {
		if _, feeErr := s.CreateOverdraftFeeTransaction(ctx, account); feeErr != nil {
			s.logger.Error("overdraft fee creation failed", "account_id", account.ID, "error", feeErr)
		} else {
			report.OverdraftFees++
			s.metrics.OverdraftFeeCharged()
		}
	}
}

// overdraftFeeDue reports whether a negative account should be charged. An account that
// has never been charged is charged immediately; otherwise the configured cooldown must
// have elapsed since the last fee.
func (s *Service) overdraftFeeDue(account *domain.Account, now time.Time) bool {
	if account.LastOverdraftFeeAt == nil {
		return true
	}
	cooldown := time.Duration(s.cfg.OverdraftCooldownDays) * 24 * time.Hour
	return now.Sub(*account.LastOverdraftFeeAt) > cooldown
}
