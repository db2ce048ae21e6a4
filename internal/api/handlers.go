/**
 * @description
 * HTTP handlers for the ledger-service API. Handlers are a thin mapping layer: they
 * parse requests, call the application service, and render client-safe projections.
 * All business rules live in internal/app.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain: service logic and models.
 */

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cardvault/ledger-service/internal/app"
	"github.com/cardvault/ledger-service/internal/domain"
)

// Handlers holds the application service the HTTP layer delegates to.
type Handlers struct {
	service *app.Service
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *app.Service, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a service error onto the wire. Client faults pass their message
// through verbatim; system faults are logged in full and answered generically.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsError(err); ok {
		if appErr.Class == domain.ClientFault {
			h.writeJSON(w, appErr.Code, errorResponse{Error: appErr.Message})
			return
		}
		h.logger.Error("request failed", "error", appErr.Err)
		h.writeJSON(w, appErr.Code, errorResponse{Error: "internal error"})
		return
	}
	h.logger.Error("request failed", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invalid " + name)
	}
	return id, nil
}

type createTransactionRequest struct {
	Type          string      `json:"type"`
	Subtype       string      `json:"subtype"`
	Amount        json.Number `json:"amount"`
	Vendor        string      `json:"vendor"`
	Description   *string     `json:"description,omitempty"`
	AccountID     *string     `json:"account_id,omitempty"`
	AccountNumber *string     `json:"account_number,omitempty"`
}

// CreateTransactionHandler creates a user-initiated pending transaction.
func (h *Handlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}

	amountCents, err := domain.ParseAmount(req.Amount.String())
	if err != nil {
		h.writeError(w, domain.NewValidationError(err.Error()))
		return
	}

	ref := app.AccountRef{}
	if req.AccountID != nil {
		id, err := uuid.Parse(*req.AccountID)
		if err != nil {
			h.writeError(w, domain.NewValidationError("invalid account_id"))
			return
		}
		ref.AccountID = &id
	}
	if req.AccountNumber != nil {
		ref.AccountNumber = req.AccountNumber
	}

	tx, err := h.service.CreateTransaction(r.Context(), app.CreateTransactionParams{
		Type:        domain.TransactionType(req.Type),
		Subtype:     domain.TransactionSubtype(req.Subtype),
		AmountCents: amountCents,
		Vendor:      req.Vendor,
		Description: req.Description,
		Account:     ref,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, domain.FilterTransaction(tx))
}

type transferRequest struct {
	SenderAccountNumber   string      `json:"sender_account_number"`
	ReceiverAccountNumber string      `json:"receiver_account_number"`
	Amount                json.Number `json:"amount"`
}

// TransferHandler creates both legs of an account-to-account transfer.
func (h *Handlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}

	amountCents, err := domain.ParseAmount(req.Amount.String())
	if err != nil {
		h.writeError(w, domain.NewValidationError(err.Error()))
		return
	}

	pair, err := h.service.CreateTransferTransaction(r.Context(), req.SenderAccountNumber, req.ReceiverAccountNumber, amountCents)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]domain.TransactionView, 0, len(pair))
	for _, tx := range pair {
		views = append(views, domain.FilterTransaction(tx))
	}
	h.writeJSON(w, http.StatusCreated, views)
}

// ListTransactionsHandler runs a filtered transaction history query.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	txs, err := h.service.FindTransactions(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]domain.TransactionView, 0, len(txs))
	for i := range txs {
		views = append(views, domain.FilterTransaction(&txs[i]))
	}
	h.writeJSON(w, http.StatusOK, views)
}

func filterFromQuery(r *http.Request) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter
	q := r.URL.Query()

	strParam := func(name string) *string {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return &v
		}
		return nil
	}

	if v := strParam("id"); v != nil {
		id, err := uuid.Parse(*v)
		if err != nil {
			return filter, domain.NewValidationError("invalid id")
		}
		filter.ID = &id
	}
	if v := strParam("from"); v != nil {
		t, err := time.Parse(time.RFC3339, *v)
		if err != nil {
			return filter, domain.NewValidationError("invalid from timestamp")
		}
		filter.DateFrom = &t
	}
	if v := strParam("to"); v != nil {
		t, err := time.Parse(time.RFC3339, *v)
		if err != nil {
			return filter, domain.NewValidationError("invalid to timestamp")
		}
		filter.DateTo = &t
	}
	if v := strParam("type"); v != nil {
		typ := domain.TransactionType(*v)
		filter.Type = &typ
	}
	if v := strParam("subtype"); v != nil {
		st := domain.TransactionSubtype(*v)
		filter.Subtype = &st
	}
	if v := strParam("status"); v != nil {
		status := domain.TransactionStatus(*v)
		filter.Status = &status
	}
	filter.Vendor = strParam("vendor")
	if v := strParam("account_id"); v != nil {
		id, err := uuid.Parse(*v)
		if err != nil {
			return filter, domain.NewValidationError("invalid account_id")
		}
		filter.AccountID = &id
	}
	filter.AccountNumber = strParam("account_number")
	filter.OwnerEmail = strParam("owner_email")

	return filter, filter.Validate()
}

// CancelTransactionHandler cancels a pending transaction.
func (h *Handlers) CancelTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	tx, err := h.service.CancelTransaction(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, domain.FilterTransaction(tx))
}

// RefundTransactionHandler creates a refund for a completed purchase.
func (h *Handlers) RefundTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	tx, err := h.service.CreateRefundTransaction(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, domain.FilterTransaction(tx))
}

type createAccountRequest struct {
	UserID string `json:"user_id"`
}

// CreateAccountHandler opens the single ledger account for a user.
func (h *Handlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, domain.NewValidationError("invalid user_id"))
		return
	}

	account, err := h.service.CreateAccount(r.Context(), userID, "api")
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, domain.FilterAccount(account))
}

// BalancesHandler returns the derived balances for an account.
func (h *Handlers) BalancesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	balance, err := h.service.Balances(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, domain.FilterBalance(balance))
}

// SetAccountActiveHandler toggles the account's active flag; the route determines the
// direction.
func (h *Handlers) SetAccountActiveHandler(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			h.writeError(w, err)
			return
		}

		account, err := h.service.SetAccountActive(r.Context(), id, active, "api")
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, domain.FilterAccount(account))
	}
}

// AccountAuditTrailHandler returns the append-only audit history for an account.
func (h *Handlers) AccountAuditTrailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	trail, err := h.service.AccountAuditTrail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if trail == nil {
		trail = domain.AuditTrail{}
	}
	h.writeJSON(w, http.StatusOK, trail)
}
