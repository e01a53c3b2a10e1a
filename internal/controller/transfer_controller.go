package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	transferApp "github.com/lumenbank/transfers/internal/application/transfer"
	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	domainTransfer "github.com/lumenbank/transfers/internal/domain/transfer"
	"github.com/lumenbank/transfers/internal/infrastructure/observability"
	"github.com/lumenbank/transfers/internal/ledger"
)

type TransferController struct {
	attempts *transferApp.Registry
	metrics  *observability.Metrics
}

func NewTransferController(attempts *transferApp.Registry, metrics *observability.Metrics) *TransferController {
	return &TransferController{attempts: attempts, metrics: metrics}
}

// Submit runs one transfer attempt end to end: optional recipient
// resolution, validation, the ledger call and the mirror write. The
// Idempotency-Key header, when present, becomes the ledger key so a
// transport retry of the same request cannot double-spend.
func (h *TransferController) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitTransferRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DestinationAccountID == "" && req.Recipient == "" {
		writeError(w, domainErrors.NewValidationError("destination", "destination_account_id or recipient is required"))
		return
	}

	sourceID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid source account id", Code: "invalid_id"})
		return
	}

	orch := h.attempts.Acquire(sourceID)

	destID, err := h.destination(r, orch, req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.metrics.ActiveAttempts.Inc()
	defer h.metrics.ActiveAttempts.Dec()

	start := time.Now()
	result, err := orch.Submit(r.Context(), domainTransfer.Request{
		SourceAccountID:      sourceID,
		DestinationAccountID: destID,
		Amount:               floatToCents(req.Amount),
		Currency:             req.Currency,
		Description:          req.Description,
		IdempotencyKey:       r.Header.Get("Idempotency-Key"),
	})

	outcome := submitOutcome(err)
	h.metrics.TransfersTotal.WithLabelValues(outcome).Inc()
	h.metrics.TransferDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		h.recordFailure(err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResponse{
		TransactionID:  result.TransactionID.String(),
		State:          string(orch.State()),
		NewBalance:     centsToFloat(result.NewBalance),
		Currency:       req.Currency,
		IdempotencyKey: result.IdempotencyKey,
		Warning:        result.Warning,
	})
}

// destination resolves the target account: an explicit account ID wins,
// otherwise the recipient identifier is resolved through the directory.
func (h *TransferController) destination(r *http.Request, orch *transferApp.Orchestrator, req SubmitTransferRequest) (uuid.UUID, error) {
	if req.DestinationAccountID != "" {
		return uuid.Parse(req.DestinationAccountID)
	}

	identity, err := orch.Resolve(r.Context(), req.Recipient)
	if err != nil {
		h.metrics.ResolutionsTotal.WithLabelValues(resolutionOutcome(err)).Inc()
		return uuid.Nil, err
	}
	h.metrics.ResolutionsTotal.WithLabelValues("ok").Inc()
	return identity.DestinationAccountID, nil
}

// Resolve previews a recipient without starting a submission.
func (h *TransferController) Resolve(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeError(w, domainErrors.NewValidationError("identifier", "required query parameter"))
		return
	}

	identity, err := h.attempts.NewAttempt().Resolve(r.Context(), identifier)
	h.metrics.ResolutionsTotal.WithLabelValues(resolutionOutcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromRecipient(identity))
}

// Attempt returns the display state of the current attempt for a source
// account. An account with no attempt reports idle.
func (h *TransferController) Attempt(w http.ResponseWriter, r *http.Request) {
	sourceID, err := uuid.Parse(r.URL.Query().Get("source_account_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid source account id", Code: "invalid_id"})
		return
	}

	orch := h.attempts.Peek(sourceID)
	if orch == nil {
		writeJSON(w, http.StatusOK, AttemptResponse{State: string(domainTransfer.StateIdle)})
		return
	}

	writeJSON(w, http.StatusOK, FromAttemptView(orch.CurrentView()))
}

func (h *TransferController) recordFailure(err error) {
	switch {
	case errors.Is(err, ledger.ErrAmbiguous):
		h.metrics.LedgerErrors.WithLabelValues("ambiguous").Inc()
	case errors.Is(err, ledger.ErrInternal):
		h.metrics.LedgerErrors.WithLabelValues("internal").Inc()
	case errors.Is(err, ledger.ErrPermissionDenied):
		h.metrics.LedgerErrors.WithLabelValues("permission_denied").Inc()
	case errors.Is(err, ledger.ErrNotFound):
		h.metrics.LedgerErrors.WithLabelValues("not_found").Inc()
	}

	for _, m := range []struct {
		err    error
		reason string
	}{
		{domainErrors.ErrInvalidAmount, "invalid_amount"},
		{domainErrors.ErrInsufficientFunds, "insufficient_funds"},
		{domainErrors.ErrDailyLimitExceeded, "daily_limit_exceeded"},
		{domainErrors.ErrInvalidRecipient, "invalid_recipient"},
	} {
		if errors.Is(err, m.err) {
			h.metrics.TransferRejections.WithLabelValues(m.reason).Inc()
			return
		}
	}
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ledger.ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, domainErrors.ErrTransferInFlight):
		return "in_flight"
	case errors.Is(err, domainErrors.ErrInvalidAmount),
		errors.Is(err, domainErrors.ErrInsufficientFunds),
		errors.Is(err, domainErrors.ErrDailyLimitExceeded),
		errors.Is(err, domainErrors.ErrInvalidRecipient):
		return "rejected"
	default:
		return "failed"
	}
}

func resolutionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainErrors.ErrRecipientNotFound):
		return "not_found"
	case errors.Is(err, domainErrors.ErrNoActiveDestination):
		return "no_active_destination"
	default:
		return "error"
	}
}
