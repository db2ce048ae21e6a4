/**
 * @description
 * Client-safe projections of the domain entities. Views hide internal-only fields
 * (raw account numbers, audit metadata, owner references) and render amounts as
 * two-decimal strings for API consumers.
 */

package domain

import "time"

// TransactionView is the projection of a Transaction returned to API callers.
type TransactionView struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Subtype     string  `json:"subtype"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	Vendor      string  `json:"vendor"`
	Description *string `json:"description,omitempty"`
	AccountID   string  `json:"account_id"`
}

// FilterTransaction builds the client-safe projection of a transaction.
func FilterTransaction(t *Transaction) TransactionView {
	return TransactionView{
		ID:          t.ID.String(),
		Date:        t.Date.UTC().Format(time.RFC3339),
		Type:        string(t.Type),
		Subtype:     string(t.Subtype),
		Amount:      FormatAmount(t.AmountCents),
		Status:      string(t.Status),
		Vendor:      t.Vendor,
		Description: t.Description,
		AccountID:   t.AccountID.String(),
	}
}

// AccountView is the projection of an Account. The full account number stays internal;
// only the masked last four digits are exposed.
type AccountView struct {
	ID        string `json:"id"`
	LastFour  string `json:"last_four"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// FilterAccount builds the client-safe projection of an account.
func FilterAccount(a *Account) AccountView {
	return AccountView{
		ID:        a.ID.String(),
		LastFour:  a.LastFour,
		Active:    a.Active,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BalanceView renders a derived balance with two-decimal amounts.
type BalanceView struct {
	CurrentBalance string `json:"current_balance"`
	PendingBalance string `json:"pending_balance"`
	FinalBalance   string `json:"final_balance"`
}

// FilterBalance builds the client-safe projection of a balance.
func FilterBalance(b *Balance) BalanceView {
	return BalanceView{
		CurrentBalance: FormatAmount(b.CurrentCents),
		PendingBalance: FormatAmount(b.PendingCents),
		FinalBalance:   FormatAmount(b.FinalCents),
	}
}
