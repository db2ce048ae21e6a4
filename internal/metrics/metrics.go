/**
 * @description
 * Prometheus metrics for the ledger's batch engines. Counters are registered with the
 * default registry and exposed by the API router at /metrics.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics is valid and all
// methods are no-ops, so tests and wiring without metrics stay simple.
type Metrics struct {
	settled   *prometheus.CounterVec
	cashbacks prometheus.Counter
	overdraft prometheus.Counter
	interest  prometheus.Counter
}

// New registers and returns the ledger metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		settled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_settled_total",
			Help: "Pending transactions moved to a terminal status, by outcome.",
		}, []string{"outcome"}),
		cashbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cashback_transactions_total",
			Help: "Cashback transactions created by settlement.",
		}),
		overdraft: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_overdraft_fees_total",
			Help: "Overdraft fee transactions charged by settlement.",
		}),
		interest: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_interest_payouts_total",
			Help: "Interest transactions inserted by the accrual job.",
		}),
	}
}

// TransactionSettled records one settled transaction with its outcome
// ("completed" or "failed").
func (m *Metrics) TransactionSettled(outcome string) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(outcome).Inc()
}

// CashbackCreated records one cashback side effect.
func (m *Metrics) CashbackCreated() {
	if m == nil {
		return
	}
	m.cashbacks.Inc()
}

// OverdraftFeeCharged records one overdraft fee side effect.
func (m *Metrics) OverdraftFeeCharged() {
	if m == nil {
		return
	}
	m.overdraft.Inc()
}

// InterestPaid records interest transactions inserted by an accrual run.
func (m *Metrics) InterestPaid(count int) {
	if m == nil {
		return
	}
	m.interest.Add(float64(count))
}
