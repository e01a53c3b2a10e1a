package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accountApp "github.com/lumenbank/transfers/internal/application/account"
	domainAccount "github.com/lumenbank/transfers/internal/domain/account"
	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/mirror"
)

// mirrorStreamPoll is how often an open mirror stream checks for new entries.
const mirrorStreamPoll = 2 * time.Second

type AccountController struct {
	accounts *accountApp.Service
	mirror   *mirror.Mirror
	subs     *mirror.SubscriptionManager
}

func NewAccountController(accounts *accountApp.Service, m *mirror.Mirror, subs *mirror.SubscriptionManager) *AccountController {
	return &AccountController{accounts: accounts, mirror: m, subs: subs}
}

// List returns the accounts owned by a user. With active=true only active
// accounts are returned, in the order resolution would pick from.
func (h *AccountController) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, domainErrors.NewValidationError("user_id", "required query parameter"))
		return
	}

	list, err := h.listForUser(r, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*AccountResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, FromAccount(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AccountController) listForUser(r *http.Request, userID string) ([]*domainAccount.Account, error) {
	if r.URL.Query().Get("active") == "true" {
		return h.accounts.ListActiveAccounts(r.Context(), userID)
	}
	return h.accounts.ListAccounts(r.Context(), userID)
}

func (h *AccountController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account id", Code: "invalid_id"})
		return
	}

	acct, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromAccount(acct))
}

// ListTransactions returns the authoritative transaction history for an
// account, newest first.
func (h *AccountController) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account id", Code: "invalid_id"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	txns, err := h.accounts.ListTransactions(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*TransactionResponse, 0, len(txns))
	for _, tx := range txns {
		resp = append(resp, FromTransaction(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}

// StreamMirror pushes new mirror entries for an account as server-sent
// events. Opening a second stream for the same account replaces the first;
// every stream ends when the subscription manager is stopped.
func (h *AccountController) StreamMirror(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account id", Code: "invalid_id"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported", Code: "streaming_unsupported"})
		return
	}

	ctx, release := h.subs.Subscribe(id.String())
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(mirrorStreamPoll)
	defer ticker.Stop()

	var lastSeen uuid.UUID
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			txns, err := h.mirror.ListRecent(ctx, id, 1)
			if err != nil || len(txns) == 0 || txns[0].ID == lastSeen {
				continue
			}
			lastSeen = txns[0].ID

			payload, err := json.Marshal(FromTransaction(txns[0]))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: transaction\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// ListMirror returns the locally mirrored recent transactions. The mirror
// may lag the ledger; this endpoint exists for fast, possibly stale reads.
func (h *AccountController) ListMirror(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account id", Code: "invalid_id"})
		return
	}

	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	txns, err := h.mirror.ListRecent(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*TransactionResponse, 0, len(txns))
	for _, tx := range txns {
		resp = append(resp, FromTransaction(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}
