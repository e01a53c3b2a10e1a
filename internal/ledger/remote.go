package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/lumenbank/transfers/pkg/retry"
)

// RemoteClient calls the managed transfer function over HTTP. Transport
// retries reuse the same idempotency key, so they are safe under the
// ledger's deduplication guarantee. A context deadline expiring mid-call
// yields ErrAmbiguous: the transfer may or may not have committed.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*TransferOutput]
	retryCfg   retry.Config
	logger     zerolog.Logger
}

// RemoteConfig configures the remote ledger client.
type RemoteConfig struct {
	BaseURL        string
	CallTimeout    time.Duration
	MaxAttempts    uint
	InitialBackoff time.Duration
}

// NewRemoteClient creates a RemoteClient with a circuit breaker sized for a
// single upstream function endpoint.
func NewRemoteClient(cfg RemoteConfig, logger zerolog.Logger) *RemoteClient {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 3
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	return &RemoteClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*TransferOutput](gobreaker.Settings{
			Name:        "ledger",
			MaxRequests: 10,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
		}),
		retryCfg: retry.Config{
			MaxAttempts:  attempts,
			InitialDelay: backoff,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
		logger: logger,
	}
}

type processTransferRequest struct {
	FromAccountID  string `json:"from_account_id"`
	ToAccountID    string `json:"to_account_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type processTransferResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	FromBalance   *int64 `json:"from_balance_cents,omitempty"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ProcessTransfer implements Service against the remote transfer function.
func (c *RemoteClient) ProcessTransfer(ctx context.Context, in TransferInput) (*TransferOutput, error) {
	out, err := c.breaker.Execute(func() (*TransferOutput, error) {
		return retry.DoWithResult(ctx, c.retryCfg, func() (*TransferOutput, error) {
			return c.call(ctx, in)
		})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn().
				Str("idempotency_key", in.IdempotencyKey).
				Msg("ledger call timed out, outcome ambiguous")
			return nil, ErrAmbiguous
		}
		return nil, err
	}
	return out, nil
}

func (c *RemoteClient) call(ctx context.Context, in TransferInput) (*TransferOutput, error) {
	body, err := json.Marshal(processTransferRequest{
		FromAccountID:  in.FromAccountID.String(),
		ToAccountID:    in.ToAccountID.String(),
		AmountCents:    in.Amount,
		Currency:       in.Currency,
		Description:    in.Description,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/processTransfer", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger call: %w", err)
	}
	defer resp.Body.Close()

	var decoded processTransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode ledger response: %w", err)
	}

	if !decoded.Success {
		return nil, decodeFailure(resp.StatusCode, decoded)
	}

	txID, err := uuid.Parse(decoded.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id %q: %w", decoded.TransactionID, err)
	}
	if decoded.FromBalance == nil {
		return nil, fmt.Errorf("ledger response missing from_balance: %w", ErrInternal)
	}

	return &TransferOutput{TransactionID: txID, FromBalance: *decoded.FromBalance}, nil
}

// decodeFailure maps the wire error envelope to a typed failure. Business
// rejections are wrapped in retry.Unrecoverable so the transport retry loop
// does not replay them.
func decodeFailure(status int, resp processTransferResponse) error {
	code := ""
	message := ""
	if resp.Error != nil {
		code = resp.Error.Code
		message = resp.Error.Message
	}

	switch code {
	case "not_found":
		return retry.Unrecoverable(fmt.Errorf("%s: %w", message, ErrNotFound))
	case "permission_denied":
		return retry.Unrecoverable(fmt.Errorf("%s: %w", message, ErrPermissionDenied))
	case "insufficient_funds":
		return retry.Unrecoverable(fmt.Errorf("%s: %w", message, ErrInsufficientFunds))
	}

	// 5xx without a recognized code is transient and worth a retry.
	if status >= 500 {
		return fmt.Errorf("ledger status %d: %w", status, ErrInternal)
	}
	return retry.Unrecoverable(fmt.Errorf("ledger status %d (%s): %w", status, message, ErrInternal))
}
