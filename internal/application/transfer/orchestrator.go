package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lumenbank/transfers/internal/domain/account"
	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/domain/transaction"
	domainTransfer "github.com/lumenbank/transfers/internal/domain/transfer"
	"github.com/lumenbank/transfers/internal/ledger"
)

// WarningMirrorWriteFailed is surfaced on a completed transfer whose local
// mirror append failed. The ledger already committed; the mirror will catch
// up from the event stream.
const WarningMirrorWriteFailed = "transfer completed, but the local transaction mirror could not be updated"

// Result is the outcome of a successfully submitted transfer.
type Result struct {
	// TransactionID is the debit-side transaction created by the ledger.
	TransactionID uuid.UUID
	// NewBalance is the authoritative post-transfer source balance, in cents.
	NewBalance int64
	// IdempotencyKey is the key the attempt was submitted under.
	IdempotencyKey string
	// Warning carries a non-fatal problem (mirror write failure). Empty on a
	// clean completion.
	Warning string
}

// View is the display state of the current attempt. PendingBalance is the
// optimistic client-computed balance shown while the ledger call is in
// flight; ConfirmedBalance is the authoritative value that replaces it.
// The two are never merged.
type View struct {
	State            domainTransfer.AttemptState
	Recipient        *domainTransfer.RecipientIdentity
	PendingBalance   *int64
	ConfirmedBalance *int64
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Directory RecipientDirectory
	Accounts  AccountSource
	Validator *Validator
	Ledger    ledger.Service
	Mirror    MirrorWriter
	// LedgerTimeout bounds the ledger call. On expiry the attempt fails with
	// ledger.ErrAmbiguous.
	LedgerTimeout time.Duration
	Logger        zerolog.Logger
}

// Orchestrator sequences resolution, validation, the ledger invocation and
// local-state reconciliation for one transfer attempt at a time. A second
// Submit while one is in flight is rejected, never queued; that is the
// double-submit guard for the same funds.
type Orchestrator struct {
	deps Deps

	mu               sync.Mutex
	state            domainTransfer.AttemptState
	inFlight         bool
	recipient        *domainTransfer.RecipientIdentity
	pendingBalance   *int64
	confirmedBalance *int64
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.LedgerTimeout <= 0 {
		deps.LedgerTimeout = 15 * time.Second
	}
	return &Orchestrator{deps: deps, state: domainTransfer.StateIdle}
}

// State returns the current attempt state.
func (o *Orchestrator) State() domainTransfer.AttemptState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CurrentView returns the display state of the attempt.
func (o *Orchestrator) CurrentView() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return View{
		State:            o.state,
		Recipient:        o.recipient,
		PendingBalance:   o.pendingBalance,
		ConfirmedBalance: o.confirmedBalance,
	}
}

// Reset starts a new logical attempt. Not permitted while a submission is
// running to completion.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return domainErrors.ErrTransferInFlight
	}
	o.state = domainTransfer.StateIdle
	o.recipient = nil
	o.pendingBalance = nil
	o.confirmedBalance = nil
	return nil
}

// transition moves the attempt forward, enforcing the state machine.
// Callers hold o.mu.
func (o *Orchestrator) transitionLocked(to domainTransfer.AttemptState) error {
	if !domainTransfer.CanTransition(o.state, to) {
		return domainErrors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.state)+" to "+string(to),
			domainErrors.ErrInvalidStateTransition,
		)
	}
	o.state = to
	return nil
}

// Resolve maps a human-entered identifier to a recipient identity with a
// settled destination account (the recipient's first active account).
// Cancellable via ctx; resolution failures are terminal for the attempt.
func (o *Orchestrator) Resolve(ctx context.Context, identifier string) (*domainTransfer.RecipientIdentity, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, domainErrors.ErrTransferInFlight
	}
	if err := o.transitionLocked(domainTransfer.StateResolving); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.inFlight = true
	o.mu.Unlock()

	identity, err := o.resolve(ctx, identifier)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false
	if err != nil {
		o.state = domainTransfer.StateResolutionFailed
		return nil, err
	}
	o.state = domainTransfer.StateResolved
	o.recipient = identity
	return identity, nil
}

func (o *Orchestrator) resolve(ctx context.Context, identifier string) (*domainTransfer.RecipientIdentity, error) {
	recipient, err := o.deps.Directory.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	accounts, err := o.deps.Accounts.ListActiveAccounts(ctx, recipient.UserID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domainErrors.ErrNoActiveDestination
	}

	dest := accounts[0]
	return &domainTransfer.RecipientIdentity{
		UserID:               recipient.UserID,
		DisplayName:          recipient.DisplayName,
		ContactIdentifier:    recipient.ContactIdentifier,
		DestinationAccountID: dest.ID,
		DestinationNumber:    dest.Number,
	}, nil
}

// Submit validates the request and, on approval, invokes the ledger's atomic
// transfer. Validation is cancellable; once the ledger call starts the
// context is detached and only the client-side timeout applies, because a
// half-cancelled ledger call would leave ambiguous state.
func (o *Orchestrator) Submit(ctx context.Context, req domainTransfer.Request) (*Result, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, domainErrors.ErrTransferInFlight
	}
	if err := o.transitionLocked(domainTransfer.StateValidating); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.inFlight = true
	o.mu.Unlock()

	result, err := o.submit(ctx, req)

	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
	return result, err
}

func (o *Orchestrator) submit(ctx context.Context, req domainTransfer.Request) (*Result, error) {
	source, err := o.deps.Accounts.GetAccount(ctx, req.SourceAccountID)
	if err != nil {
		o.fail()
		return nil, err
	}
	dest, err := o.deps.Accounts.GetAccount(ctx, req.DestinationAccountID)
	if err != nil {
		o.fail()
		return nil, err
	}

	verdict, err := o.deps.Validator.Validate(ctx, source, dest, req.Amount)
	if err != nil {
		o.fail()
		return nil, err
	}
	if verdict.Kind != domainTransfer.Approved {
		o.mu.Lock()
		o.state = domainTransfer.StateRejected
		o.mu.Unlock()
		return nil, rejectionError(verdict)
	}

	// One key per logical attempt. Transport retries inside the ledger
	// client reuse it; a fresh attempt after failure gets a fresh key.
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}

	o.mu.Lock()
	if err := o.transitionLocked(domainTransfer.StateSubmitting); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	pending := source.Balance - req.Amount
	o.pendingBalance = &pending
	o.mu.Unlock()

	// Past this point cancellation is not offered; the call runs to
	// completion or failure under its own timeout.
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.LedgerTimeout)
	defer cancel()

	out, err := o.deps.Ledger.ProcessTransfer(ledgerCtx, ledger.TransferInput{
		FromAccountID:  source.ID,
		ToAccountID:    dest.ID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		IdempotencyKey: key,
	})
	if err != nil {
		o.fail()
		o.deps.Logger.Error().Err(err).
			Str("source_account", source.ID.String()).
			Str("idempotency_key", key).
			Msg("ledger transfer failed")
		return nil, err
	}

	o.mu.Lock()
	o.state = domainTransfer.StateCompleted
	o.pendingBalance = nil
	o.confirmedBalance = &out.FromBalance
	o.mu.Unlock()

	result := &Result{
		TransactionID:  out.TransactionID,
		NewBalance:     out.FromBalance,
		IdempotencyKey: key,
	}

	if warnErr := o.mirrorDebit(ctx, req, source, dest, out); warnErr != nil {
		o.deps.Logger.Warn().Err(warnErr).
			Str("transaction_id", out.TransactionID.String()).
			Msg("local mirror write failed after completed transfer")
		result.Warning = WarningMirrorWriteFailed
	}

	return result, nil
}

// mirrorDebit writes the debit-side record of a completed transfer to the
// local mirror. Failure never rolls back the already-committed transfer.
func (o *Orchestrator) mirrorDebit(ctx context.Context, req domainTransfer.Request, source, dest *account.Account, out *ledger.TransferOutput) error {
	counterpartyName := dest.DisplayName
	if o.recipient != nil && o.recipient.DestinationAccountID == dest.ID {
		counterpartyName = o.recipient.DisplayName
	}

	id := out.TransactionID
	return o.deps.Mirror.AppendTransaction(ctx, &transaction.Transaction{
		ID:                 id,
		AccountID:          source.ID,
		UserID:             source.UserID,
		TransferID:         &id,
		Direction:          transaction.Debit,
		Category:           transaction.CategoryTransfer,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Description:        req.Description,
		CounterpartyName:   counterpartyName,
		CounterpartyNumber: dest.Number,
		Status:             transaction.StatusCompleted,
		BalanceAfter:       out.FromBalance,
		CreatedAt:          time.Now(),
	})
}

func (o *Orchestrator) fail() {
	o.mu.Lock()
	o.state = domainTransfer.StateFailed
	o.pendingBalance = nil
	o.mu.Unlock()
}

// rejectionError attaches the rejection context to the domain error so the
// HTTP layer can explain the decision.
func rejectionError(verdict domainTransfer.ValidationResult) error {
	base := verdict.Err()
	switch verdict.Kind {
	case domainTransfer.InsufficientFunds:
		return domainErrors.NewDomainError(
			"insufficient_funds",
			"available balance is "+formatCents(verdict.Available),
			base,
		)
	case domainTransfer.DailyLimitExceeded:
		msg := "daily limit is " + formatCents(verdict.Limit)
		if verdict.WindowTotal > 0 {
			msg += ", trailing 24h total would be " + formatCents(verdict.WindowTotal)
		}
		return domainErrors.NewDomainError("daily_limit_exceeded", msg, base)
	default:
		return base
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
