// Package rpcclient talks to a remote node's HTTP API. It implements the
// bridge backend so a client can sign against a node in another process.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/logging"
	"task-ledger/internal/server"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is how often WaitForReceipt asks for a receipt
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 10 * time.Second
)

// Options configures the client
type Options struct {
	HTTPClient   *http.Client
	PollInterval time.Duration
	Logger       *zap.SugaredLogger
}

// Client is a node backend reached over HTTP
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *zap.SugaredLogger
}

// New creates a client for the node API at baseURL, e.g. http://127.0.0.1:8545
func New(baseURL string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   opts.HTTPClient,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

// ChainID reports the network the remote node runs
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var resp server.ChainResponse
	if err := c.do(ctx, http.MethodGet, "/v1/chain", "", nil, &resp); err != nil {
		return 0, err
	}
	return resp.ChainID, nil
}

// BlockNumber returns the latest confirmed block on the remote node
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	var resp server.ChainResponse
	if err := c.do(ctx, http.MethodGet, "/v1/chain", "", nil, &resp); err != nil {
		return 0, err
	}
	return resp.BlockNumber, nil
}

// Submit sends call as from and returns the transaction id
func (c *Client) Submit(ctx context.Context, from domain.Address, call domain.Call) (string, error) {
	req := server.TransactionRequest{
		Method:  string(call.Method),
		TaskID:  call.TaskID,
		Text:    call.Text,
		Deleted: call.Deleted,
	}
	var resp struct {
		TxID string `json:"tx_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", from, req, &resp); err != nil {
		return "", err
	}
	c.logger.Debugw("transaction sent", "tx_id", resp.TxID, "method", call.Method)
	return resp.TxID, nil
}

// Receipt fetches the receipt of a confirmed transaction
func (c *Client) Receipt(ctx context.Context, txID string) (*domain.Receipt, error) {
	var receipt domain.Receipt
	if err := c.do(ctx, http.MethodGet, "/v1/transactions/"+url.PathEscape(txID), "", nil, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// WaitForReceipt polls until txID is confirmed or ctx is done. A reverted
// transaction returns its receipt together with a reverted error.
func (c *Client) WaitForReceipt(ctx context.Context, txID string) (*domain.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.Receipt(ctx, txID)
		if err == nil {
			if receipt.Succeeded() {
				return receipt, nil
			}
			return receipt, errors.NewRevertedError(receipt.TxID, stderrors.New(receipt.Error))
		}
		if !errors.IsErrorType(err, errors.ErrorTypeNotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetMyTasks returns account's visible tasks
func (c *Client) GetMyTasks(ctx context.Context, account domain.Address) ([]domain.Task, error) {
	var resp struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tasks", account, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetTask returns one of account's tasks
func (c *Client) GetTask(ctx context.Context, account domain.Address, taskID int64) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodGet, "/v1/tasks/"+strconv.FormatInt(taskID, 10), account, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Events returns emitted events, restricted to owner when it is set
func (c *Client) Events(ctx context.Context, owner domain.Address) ([]domain.Event, error) {
	path := "/v1/events"
	if owner != "" {
		path += "?" + url.Values{"owner": {owner.String()}}.Encode()
	}
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *Client) do(ctx context.Context, method, path string, account domain.Address, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if account != "" {
		req.Header.Set(server.AccountHeader, account.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeoutError(method+" "+path, err.Error())
		}
		return fmt.Errorf("node request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error body back into the typed error the node raised
func decodeError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("node returned %d", resp.StatusCode)
	}

	var body server.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fmt.Errorf("node returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	errorType, ok := errors.ParseErrorType(body.Type)
	if !ok {
		return fmt.Errorf("node returned %d: %s", resp.StatusCode, body.Error)
	}
	return &errors.AppError{
		Type:    errorType,
		Message: body.Error,
		Code:    body.Code,
		Context: map[string]interface{}{
			"status": resp.StatusCode,
		},
	}
}
