// Package chain runs the ordered transaction stream the ledger contract
// executes on. Mutating calls are queued and applied one at a time by a
// single worker; each confirmed call gets the next block number and a
// receipt.
package chain

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/ledger"
	"task-ledger/internal/logging"
	"task-ledger/internal/repository/sqlite"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNodeStopped is returned for calls submitted to, or still queued on, a stopped node
var ErrNodeStopped = stderrors.New("node stopped")

// Options configures a Node
type Options struct {
	ChainID   uint64
	QueueSize int
	Logger    *zap.SugaredLogger
}

// Node orders mutating calls into blocks and serves reads from the contract
type Node struct {
	repo     sqlite.Repository
	contract *ledger.Contract
	mapper   *domain.Mapper
	chainID  uint64
	logger   *zap.SugaredLogger
	now      func() time.Time

	queue    chan *PendingTx
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// mu gates submission against Stop
	mu      sync.RWMutex
	stopped bool

	pendingMu sync.Mutex
	pending   map[string]*PendingTx
}

// NewNode creates a node over repo. Call Start before submitting.
func NewNode(repo sqlite.Repository, opts Options) *Node {
	if opts.ChainID == 0 {
		opts.ChainID = domain.SepoliaChainID
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Node{
		repo:     repo,
		contract: ledger.New(repo),
		mapper:   domain.NewMapper(),
		chainID:  opts.ChainID,
		logger:   opts.Logger,
		now:      time.Now,
		queue:    make(chan *PendingTx, opts.QueueSize),
		quit:     make(chan struct{}),
		pending:  make(map[string]*PendingTx),
	}
}

// Start launches the worker. It runs until ctx is done or Stop is called;
// either way the node refuses further calls.
func (n *Node) Start(ctx context.Context) {
	n.wg.Add(1)
	go n.run(ctx)
}

// Stop halts the worker after the transaction it is applying, then fails
// everything still queued with ErrNodeStopped.
func (n *Node) Stop() {
	n.halt()
	n.wg.Wait()
	n.failQueued()
}

// halt wakes blocked submitters and refuses new calls. Once the write lock
// is held no Send is between its stopped check and its enqueue.
func (n *Node) halt() {
	n.stopOnce.Do(func() { close(n.quit) })

	n.mu.Lock()
	n.stopped = true
	n.mu.Unlock()
}

func (n *Node) failQueued() {
	for {
		select {
		case tx := <-n.queue:
			n.finish(tx, nil, ErrNodeStopped)
		default:
			return
		}
	}
}

// ChainID reports the network identifier of this node
func (n *Node) ChainID(ctx context.Context) (uint64, error) {
	return n.chainID, nil
}

// Submit queues call from sender and returns the transaction id
func (n *Node) Submit(ctx context.Context, from domain.Address, call domain.Call) (string, error) {
	tx, err := n.Send(ctx, from, call)
	if err != nil {
		return "", err
	}
	return tx.ID, nil
}

// Send queues call from sender and returns a handle to wait on
func (n *Node) Send(ctx context.Context, from domain.Address, call domain.Call) (*PendingTx, error) {
	if _, err := domain.ParseMethod(string(call.Method)); err != nil {
		return nil, err
	}
	// Senders are keyed by canonical address, like the owners they act on
	from, err := domain.ParseAddress(string(from))
	if err != nil {
		return nil, err
	}

	tx := newPendingTx(uuid.NewString(), from, call)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.stopped {
		return nil, ErrNodeStopped
	}

	n.pendingMu.Lock()
	n.pending[tx.ID] = tx
	n.pendingMu.Unlock()

	select {
	case n.queue <- tx:
		n.logger.Debugw("transaction queued", "tx_id", tx.ID, "from", from, "method", call.Method)
		return tx, nil
	case <-ctx.Done():
		n.forget(tx.ID)
		return nil, ctx.Err()
	case <-n.quit:
		n.forget(tx.ID)
		return nil, ErrNodeStopped
	}
}

// WaitForReceipt blocks until txID is confirmed. A reverted transaction
// returns its receipt together with a reverted error.
func (n *Node) WaitForReceipt(ctx context.Context, txID string) (*domain.Receipt, error) {
	n.pendingMu.Lock()
	tx, ok := n.pending[txID]
	n.pendingMu.Unlock()
	if ok {
		return tx.Wait(ctx)
	}

	receipt, err := n.Receipt(ctx, txID)
	if err != nil {
		return nil, err
	}
	return receipt, revertError(receipt)
}

// Receipt returns the stored receipt of a confirmed transaction. Pending
// and unknown transactions are reported as not found.
func (n *Node) Receipt(ctx context.Context, txID string) (*domain.Receipt, error) {
	dbReceipt, err := n.repo.GetReceipt(ctx, txID)
	if err != nil {
		return nil, err
	}
	events, err := n.contract.TxEvents(ctx, n.repo, txID)
	if err != nil {
		return nil, err
	}
	receipt := n.mapper.Receipt.FromDatabase(*dbReceipt, events)
	return &receipt, nil
}

// BlockNumber returns the number of the latest confirmed block
func (n *Node) BlockNumber(ctx context.Context) (int64, error) {
	return n.repo.LatestBlock(ctx)
}

// GetMyTasks returns account's visible tasks. Reads do not enter the queue.
func (n *Node) GetMyTasks(ctx context.Context, account domain.Address) ([]domain.Task, error) {
	return n.contract.GetMyTasks(ctx, account)
}

// GetTask returns one of account's tasks, deleted or not
func (n *Node) GetTask(ctx context.Context, account domain.Address, taskID int64) (*domain.Task, error) {
	return n.contract.GetTask(ctx, account, taskID)
}

// Events returns emitted events, restricted to owner when it is set
func (n *Node) Events(ctx context.Context, owner domain.Address) ([]domain.Event, error) {
	return n.contract.Events(ctx, owner)
}

func (n *Node) run(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			n.halt()
			n.failQueued()
			return
		case <-n.quit:
			return
		case tx := <-n.queue:
			receipt, err := n.apply(ctx, tx)
			n.finish(tx, receipt, err)
		}
	}
}

// apply confirms tx into the next block. The contract call, its events and
// the success receipt commit together; a reverted call is rolled back and
// only a reverted receipt is written.
func (n *Node) apply(ctx context.Context, tx *PendingTx) (*domain.Receipt, error) {
	var receipt domain.Receipt
	var callErr error

	err := n.repo.WithTx(ctx, func(q sqlite.Queries) error {
		block, err := q.LatestBlock(ctx)
		if err != nil {
			return err
		}

		msg := ledger.Msg{Sender: tx.From, TxID: tx.ID, Block: block + 1}
		events, err := n.contract.Apply(ctx, q, msg, tx.Call)
		if err != nil {
			if isRevert(err) {
				callErr = err
			}
			return err
		}

		receipt = n.newReceipt(tx, msg.Block, domain.StatusSuccess, events, "")
		dbReceipt := n.mapper.Receipt.ToDatabase(receipt)
		return q.CreateReceipt(ctx, &dbReceipt)
	})
	if err == nil {
		n.logger.Infow("transaction confirmed", "tx_id", tx.ID, "block", receipt.Block, "method", tx.Call.Method)
		return &receipt, nil
	}
	if callErr == nil {
		// Storage failed outside the contract call; nothing was confirmed
		n.logger.Errorw("transaction failed", "tx_id", tx.ID, "error", err)
		return nil, err
	}

	err = n.repo.WithTx(ctx, func(q sqlite.Queries) error {
		block, err := q.LatestBlock(ctx)
		if err != nil {
			return err
		}
		receipt = n.newReceipt(tx, block+1, domain.StatusReverted, nil, errors.GetUserMessage(callErr))
		dbReceipt := n.mapper.Receipt.ToDatabase(receipt)
		return q.CreateReceipt(ctx, &dbReceipt)
	})
	if err != nil {
		n.logger.Errorw("failed to record reverted transaction", "tx_id", tx.ID, "error", err)
		return nil, err
	}

	n.logger.Warnw("transaction reverted", "tx_id", tx.ID, "block", receipt.Block, "reason", callErr)
	return &receipt, errors.NewRevertedError(tx.ID, callErr)
}

func (n *Node) newReceipt(tx *PendingTx, block int64, status domain.ReceiptStatus, events []domain.Event, reason string) domain.Receipt {
	if events == nil {
		events = []domain.Event{}
	}
	return domain.Receipt{
		TxID:      tx.ID,
		Block:     block,
		From:      tx.From,
		Method:    tx.Call.Method,
		Status:    status,
		Error:     reason,
		Events:    events,
		CreatedAt: n.now(),
	}
}

func (n *Node) finish(tx *PendingTx, receipt *domain.Receipt, err error) {
	tx.complete(receipt, err)
	n.forget(tx.ID)
}

func (n *Node) forget(txID string) {
	n.pendingMu.Lock()
	delete(n.pending, txID)
	n.pendingMu.Unlock()
}

// isRevert reports whether err is the contract refusing the call, as opposed
// to the node failing to run it
func isRevert(err error) bool {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case errors.ErrorTypeNotFound, errors.ErrorTypePermission, errors.ErrorTypeInvalidInput:
		return true
	}
	return false
}

// revertError rebuilds the error a reverted receipt stands for
func revertError(receipt *domain.Receipt) error {
	if receipt.Succeeded() {
		return nil
	}
	return errors.NewRevertedError(receipt.TxID, stderrors.New(receipt.Error))
}
