package registryclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/internal/clients/client"
	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

const (
	mintPath         = "/v1/mint"
	transferFromPath = "/v1/transfer-from"
	transferPath     = "/v1/transfer"
	setOperatorPath  = "/v1/set-operator"
	operatorPath     = "/v1/operator"
	balancePath      = "/v1/balance"
)

type Client struct {
	httpClient *http.Client
	cfg        *config.RegistryConfig
}

func NewClient(cfg *config.RegistryConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

func (c *Client) GetBaseURL() string {
	return c.cfg.Endpoint
}

func (c *Client) GetDefaultRequestTimeout() time.Duration {
	return c.cfg.Timeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

func (c *Client) Mint(ctx context.Context, account string, amount *uint256.Int) (fhe.Handle, error) {
	callForMint := func() (*mintResponse, error) {
		opts := &client.HttpClientOptions{
			Path:         mintPath,
			TemplatePath: mintPath,
		}
		input := &mintRequest{Account: account, Amount: amount.Dec()}
		return client.SendRequest[mintRequest, mintResponse](ctx, c, http.MethodPost, opts, input)
	}

	resp, err := clientCallWithRetry(ctx, callForMint, c.cfg)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("failed to mint %s for %s: %w", amount, account, err)
	}
	return resp.Cipher, nil
}

func (c *Client) ConfidentialTransferFrom(ctx context.Context, from, to string, cipher fhe.Handle) error {
	type empty struct{}
	callForTransfer := func() (*empty, error) {
		opts := &client.HttpClientOptions{
			Path:         transferFromPath,
			TemplatePath: transferFromPath,
		}
		input := &transferFromRequest{From: from, To: to, Cipher: cipher}
		return client.SendRequest[transferFromRequest, empty](ctx, c, http.MethodPost, opts, input)
	}

	if _, err := clientCallWithRetry(ctx, callForTransfer, c.cfg); err != nil {
		return fmt.Errorf("confidential transfer from %s failed: %w", from, asTransferError(err))
	}
	return nil
}

func (c *Client) ConfidentialTransfer(ctx context.Context, to string, cipher fhe.Handle) error {
	type empty struct{}
	callForTransfer := func() (*empty, error) {
		opts := &client.HttpClientOptions{
			Path:         transferPath,
			TemplatePath: transferPath,
		}
		input := &transferRequest{To: to, Cipher: cipher}
		return client.SendRequest[transferRequest, empty](ctx, c, http.MethodPost, opts, input)
	}

	if _, err := clientCallWithRetry(ctx, callForTransfer, c.cfg); err != nil {
		return fmt.Errorf("confidential transfer to %s failed: %w", to, asTransferError(err))
	}
	return nil
}

func (c *Client) SetOperator(ctx context.Context, owner, operator string, until time.Time) error {
	type empty struct{}
	callForSetOperator := func() (*empty, error) {
		opts := &client.HttpClientOptions{
			Path:         setOperatorPath,
			TemplatePath: setOperatorPath,
		}
		input := &setOperatorRequest{Owner: owner, Operator: operator, Until: until.Unix()}
		return client.SendRequest[setOperatorRequest, empty](ctx, c, http.MethodPost, opts, input)
	}

	if _, err := clientCallWithRetry(ctx, callForSetOperator, c.cfg); err != nil {
		return fmt.Errorf("failed to set operator %s for %s: %w", operator, owner, err)
	}
	return nil
}

func (c *Client) IsOperator(ctx context.Context, owner, operator string) (bool, time.Time, error) {
	type empty struct{}
	callForOperator := func() (*operatorResponse, error) {
		// owner and operator are normalized hex addresses, safe to inline
		path := operatorPath + fmt.Sprintf("?owner=%s&operator=%s", owner, operator)

		opts := &client.HttpClientOptions{
			Path:         path,
			TemplatePath: operatorPath,
		}
		return client.SendRequest[empty, operatorResponse](ctx, c, http.MethodGet, opts, nil)
	}

	resp, err := clientCallWithRetry(ctx, callForOperator, c.cfg)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to query operator status for %s: %w", owner, err)
	}
	return resp.Active, time.Unix(resp.Until, 0).UTC(), nil
}

func (c *Client) ConfidentialBalanceOf(ctx context.Context, account string) (fhe.Handle, error) {
	type empty struct{}
	callForBalance := func() (*balanceResponse, error) {
		opts := &client.HttpClientOptions{
			Path:         balancePath + "/" + account,
			TemplatePath: balancePath + "/{account}",
		}
		return client.SendRequest[empty, balanceResponse](ctx, c, http.MethodGet, opts, nil)
	}

	resp, err := clientCallWithRetry(ctx, callForBalance, c.cfg)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("failed to query confidential balance of %s: %w", account, err)
	}
	return resp.Cipher, nil
}

// asTransferError converts a 409 response carrying a rejection reason into a
// *TransferError. Any other error passes through unchanged.
func asTransferError(err error) error {
	var httpErr *client.HttpError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusConflict {
		return err
	}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(httpErr.Body, &body) != nil || body.Error == "" {
		return err
	}
	return &TransferError{Reason: body.Error}
}

func clientCallWithRetry[T any](
	ctx context.Context,
	call retry.RetryableFuncWithData[T],
	cfg *config.RegistryConfig,
) (T, error) {
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransientError),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Err(err).
				Msg("registry call failed, retrying with exponential backoff")
		}))
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// isTransientError reports whether a registry call is worth retrying. Server
// errors, rate limits and transport failures are transient; every other HTTP
// status is a final answer.
func isTransientError(err error) bool {
	var httpErr *client.HttpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError ||
			httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
