package api

import (
	"context"
	"sync"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/logging"
	"task-ledger/internal/validation"

	"go.uber.org/zap"
)

// API defines the wallet bridge operations available to the UI layer.
// Writes wait for confirmation and return the re-fetched task list.
type API interface {
	// Wallet and network
	Connect(ctx context.Context) error
	Network(ctx context.Context) (*NetworkStatus, error)
	Account() domain.Address
	Loading() bool

	// Mutating calls
	AddTask(ctx context.Context, text string) ([]domain.Task, error)
	EditTask(ctx context.Context, id int64, text string) ([]domain.Task, error)
	DeleteTask(ctx context.Context, id int64) ([]domain.Task, error)
	RestoreTask(ctx context.Context, id int64) ([]domain.Task, error)

	// Reads
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	Events(ctx context.Context) ([]domain.Event, error)
}

// NetworkStatus describes the wallet's attachment to the target network
type NetworkStatus struct {
	Account       domain.Address `json:"account"`
	ChainID       uint64         `json:"chain_id"`
	TargetChainID uint64         `json:"target_chain_id"`
	Connected     bool           `json:"connected"`
}

// Options configures the bridge
type Options struct {
	// ChainID is the network the wallet must be attached to
	ChainID   uint64
	Validator *validation.TaskValidator
	Logger    *zap.SugaredLogger
}

type apiImpl struct {
	backend       Backend
	account       domain.Address
	targetChainID uint64
	taskValidator *validation.TaskValidator
	logger        *zap.SugaredLogger

	mu        sync.Mutex
	connected bool
	loading   bool
}

// New creates a bridge that signs as account against backend. A malformed
// account is kept as given so Connect can report it.
func New(backend Backend, account domain.Address, opts Options) API {
	if parsed, err := domain.ParseAddress(string(account)); err == nil {
		account = parsed
	}
	if opts.ChainID == 0 {
		opts.ChainID = domain.SepoliaChainID
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewTaskValidator()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &apiImpl{
		backend:       backend,
		account:       account,
		targetChainID: opts.ChainID,
		taskValidator: opts.Validator,
		logger:        opts.Logger.With("account", account),
	}
}

// Connect checks that a wallet account is set and that the backend is on
// the target network. Until it succeeds every other call is refused.
func (a *apiImpl) Connect(ctx context.Context) error {
	if err := a.taskValidator.ValidateAccount(a.account.String()); err != nil {
		return a.fail("connect", err.(*validation.ValidationError).ToAppError())
	}

	chainID, err := a.backend.ChainID(ctx)
	if err != nil {
		return a.fail("connect", err)
	}

	a.mu.Lock()
	a.connected = chainID == a.targetChainID
	a.mu.Unlock()

	if chainID != a.targetChainID {
		return a.fail("connect", errors.NewNetworkError(a.targetChainID, chainID))
	}

	a.logger.Debugw("wallet connected", "chain_id", chainID)
	return nil
}

// Network reports the backend network without refusing on a mismatch
func (a *apiImpl) Network(ctx context.Context) (*NetworkStatus, error) {
	chainID, err := a.backend.ChainID(ctx)
	if err != nil {
		return nil, a.fail("network", err)
	}
	return &NetworkStatus{
		Account:       a.account,
		ChainID:       chainID,
		TargetChainID: a.targetChainID,
		Connected:     chainID == a.targetChainID,
	}, nil
}

func (a *apiImpl) Account() domain.Address {
	return a.account
}

// Loading reports whether a write is in flight
func (a *apiImpl) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

func (a *apiImpl) AddTask(ctx context.Context, text string) ([]domain.Task, error) {
	return a.write(ctx, "add task", domain.AddTaskCall(text, false))
}

func (a *apiImpl) EditTask(ctx context.Context, id int64, text string) ([]domain.Task, error) {
	return a.write(ctx, "edit task", domain.EditTaskCall(id, text))
}

func (a *apiImpl) DeleteTask(ctx context.Context, id int64) ([]domain.Task, error) {
	return a.write(ctx, "delete task", domain.DeleteTaskCall(id, true))
}

func (a *apiImpl) RestoreTask(ctx context.Context, id int64) ([]domain.Task, error) {
	return a.write(ctx, "restore task", domain.DeleteTaskCall(id, false))
}

func (a *apiImpl) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}
	tasks, err := a.backend.GetMyTasks(ctx, a.account)
	if err != nil {
		return nil, a.fail("list tasks", err)
	}
	return tasks, nil
}

func (a *apiImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	if err := a.taskValidator.ValidateTaskID(id); err != nil {
		return nil, a.fail("get task", err.(*validation.ValidationError).ToAppError())
	}
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}
	task, err := a.backend.GetTask(ctx, a.account, id)
	if err != nil {
		return nil, a.fail("get task", err)
	}
	return task, nil
}

func (a *apiImpl) Events(ctx context.Context) ([]domain.Event, error) {
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}
	events, err := a.backend.Events(ctx, a.account)
	if err != nil {
		return nil, a.fail("list events", err)
	}
	return events, nil
}

// write signs call, waits for its confirmation and re-fetches the list.
// Only one write may be in flight; the loading flag is cleared on every path.
func (a *apiImpl) write(ctx context.Context, operation string, call domain.Call) ([]domain.Task, error) {
	if err := a.taskValidator.ValidateCall(call); err != nil {
		return nil, a.fail(operation, err.(*validation.ValidationError).ToAppError())
	}
	if err := a.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if !a.beginWrite() {
		return nil, a.fail(operation, errors.NewBusyError(operation))
	}
	defer a.endWrite()

	txID, err := a.backend.Submit(ctx, a.account, call)
	if err != nil {
		return nil, a.fail(operation, err)
	}
	a.logger.Debugw("transaction submitted", "tx_id", txID, "method", call.Method)

	receipt, err := a.backend.WaitForReceipt(ctx, txID)
	if err != nil {
		return nil, a.fail(operation, err)
	}
	a.logger.Infow("transaction confirmed", "tx_id", txID, "block", receipt.Block, "method", call.Method)

	tasks, err := a.backend.GetMyTasks(ctx, a.account)
	if err != nil {
		return nil, a.fail(operation, err)
	}
	return tasks, nil
}

func (a *apiImpl) ensureConnected(ctx context.Context) error {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if connected {
		return nil
	}
	return a.Connect(ctx)
}

func (a *apiImpl) beginWrite() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loading {
		return false
	}
	a.loading = true
	return true
}

func (a *apiImpl) endWrite() {
	a.mu.Lock()
	a.loading = false
	a.mu.Unlock()
}

// fail logs err and hands it back; no call is retried
func (a *apiImpl) fail(operation string, err error) error {
	if errors.ShouldLogError(err) {
		a.logger.Errorw(operation+" failed", "error", err, "code", errors.GetErrorCode(err))
	} else {
		a.logger.Debugw(operation+" rejected", "error", err, "code", errors.GetErrorCode(err))
	}
	return err
}
