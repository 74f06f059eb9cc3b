package chain

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/repository/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.MustParseAddress("0x5b38da6a701c568545dcfcb03fcb875f56beddc4")
	bob   = domain.MustParseAddress("0xab8483f64d9c6d1ecf9b849ae677dd3315835cb2")
)

func setupNode(t *testing.T) *Node {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)

	node := NewNode(repo, Options{ChainID: 31337, QueueSize: 8})
	node.Start(context.Background())
	t.Cleanup(func() {
		node.Stop()
		repo.Close()
	})
	return node
}

func send(t *testing.T, node *Node, from domain.Address, call domain.Call) (*domain.Receipt, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	txID, err := node.Submit(ctx, from, call)
	require.NoError(t, err)
	return node.WaitForReceipt(ctx, txID)
}

func TestNode_ChainID(t *testing.T) {
	node := setupNode(t)

	id, err := node.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), id)
}

func TestNewNode_Defaults(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	node := NewNode(repo, Options{})
	id, _ := node.ChainID(context.Background())
	assert.Equal(t, domain.SepoliaChainID, id)
	assert.Equal(t, 64, cap(node.queue))
}

func TestNode_ConfirmsIntoSequentialBlocks(t *testing.T) {
	node := setupNode(t)

	for i := 0; i < 3; i++ {
		receipt, err := send(t, node, alice, domain.AddTaskCall(fmt.Sprintf("task %d", i), false))
		require.NoError(t, err)
		assert.True(t, receipt.Succeeded())
		assert.Equal(t, int64(i+1), receipt.Block)
		assert.Equal(t, alice, receipt.From)
		assert.Equal(t, domain.MethodAddTask, receipt.Method)
		require.Len(t, receipt.Events, 1)
		assert.Equal(t, int64(i), receipt.Events[0].TaskID)
		assert.Equal(t, receipt.Block, receipt.Events[0].Block)
	}

	block, err := node.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), block)
}

func TestNode_RevertedReceipt(t *testing.T) {
	node := setupNode(t)

	receipt, err := send(t, node, alice, domain.EditTaskCall(4, "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeReverted))
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound), "cause is kept")

	require.NotNil(t, receipt)
	assert.Equal(t, domain.StatusReverted, receipt.Status)
	assert.Equal(t, "task not found: 4", receipt.Error)
	assert.Empty(t, receipt.Events)
	assert.Equal(t, int64(1), receipt.Block, "reverted transactions still occupy a block")

	// Looking the receipt up later reports the same outcome
	stored, err := node.WaitForReceipt(context.Background(), receipt.TxID)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeReverted))
	assert.Equal(t, receipt.Error, stored.Error)

	tasks, err := node.GetMyTasks(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestNode_Receipt(t *testing.T) {
	node := setupNode(t)

	receipt, err := send(t, node, alice, domain.AddTaskCall("hello", false))
	require.NoError(t, err)

	stored, err := node.Receipt(context.Background(), receipt.TxID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Block, stored.Block)
	require.Len(t, stored.Events, 1)
	assert.Equal(t, domain.EventAddTask, stored.Events[0].Name)

	_, err = node.Receipt(context.Background(), "unknown")
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))
}

func TestNode_SubmitValidation(t *testing.T) {
	node := setupNode(t)
	ctx := context.Background()

	_, err := node.Submit(ctx, alice, domain.Call{Method: "transfer"})
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidInput))

	for _, from := range []domain.Address{"", "alice", "0x5b38"} {
		_, err = node.Submit(ctx, from, domain.AddTaskCall("x", false))
		assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidInput), "sender %q", from)
	}
}

func TestNode_SenderAddressesAreCanonical(t *testing.T) {
	node := setupNode(t)
	ctx := context.Background()

	tests := []struct {
		name string
		from domain.Address
	}{
		{"checksummed", "0x5B38Da6a701c568545dCfcB03FcB875f56beddC4"},
		{"upper case", domain.Address("0x" + strings.ToUpper(alice.String()[2:]))},
		{"upper case prefix", domain.Address("0X" + alice.String()[2:])},
		{"padded", " " + alice + " "},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := send(t, node, tt.from, domain.AddTaskCall(tt.name, false))
			require.NoError(t, err)
			assert.Equal(t, alice, receipt.From)

			tasks, err := node.GetMyTasks(ctx, alice)
			require.NoError(t, err)
			require.Len(t, tasks, i+1)
			assert.Equal(t, int64(i), tasks[i].ID)
			assert.Equal(t, tt.name, tasks[i].TaskText)
		})
	}

	// The same account may edit what it added under another spelling
	_, err := send(t, node, "0x5B38DA6A701C568545DCFCB03FCB875F56BEDDC4", domain.EditTaskCall(0, "renamed"))
	require.NoError(t, err)
	task, err := node.GetTask(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.TaskText)
}

func TestNode_ConcurrentSubmittersAreSerialized(t *testing.T) {
	node := setupNode(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const perAccount = 10
	var wg sync.WaitGroup
	blocks := make(chan int64, 2*perAccount)

	for _, account := range []domain.Address{alice, bob} {
		wg.Add(1)
		go func(account domain.Address) {
			defer wg.Done()
			for i := 0; i < perAccount; i++ {
				tx, err := node.Send(ctx, account, domain.AddTaskCall(fmt.Sprintf("%s-%d", account.Short(), i), false))
				if !assert.NoError(t, err) {
					return
				}
				receipt, err := tx.Wait(ctx)
				if !assert.NoError(t, err) {
					return
				}
				blocks <- receipt.Block
			}
		}(account)
	}
	wg.Wait()
	close(blocks)

	seen := make(map[int64]bool)
	for block := range blocks {
		assert.False(t, seen[block], "block %d assigned twice", block)
		seen[block] = true
	}
	assert.Len(t, seen, 2*perAccount)

	for _, account := range []domain.Address{alice, bob} {
		tasks, err := node.GetMyTasks(ctx, account)
		require.NoError(t, err)
		require.Len(t, tasks, perAccount)
		for i, task := range tasks {
			assert.Equal(t, int64(i), task.ID)
			assert.Equal(t, fmt.Sprintf("%s-%d", account.Short(), i), task.TaskText)
		}
	}
}

func TestNode_ReadsAndEvents(t *testing.T) {
	node := setupNode(t)
	ctx := context.Background()

	_, err := send(t, node, alice, domain.AddTaskCall("a", false))
	require.NoError(t, err)
	_, err = send(t, node, bob, domain.AddTaskCall("b", false))
	require.NoError(t, err)
	_, err = send(t, node, alice, domain.DeleteTaskCall(0, true))
	require.NoError(t, err)

	task, err := node.GetTask(ctx, alice, 0)
	require.NoError(t, err)
	assert.True(t, task.IsDeleted)

	all, err := node.Events(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := node.Events(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "DeleteTask(0, true)", mine[1].String())
}

func TestNode_StopRejectsNewCalls(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	node := NewNode(repo, Options{QueueSize: 4})
	node.Start(context.Background())
	node.Stop()
	node.Stop() // idempotent

	_, err = node.Submit(context.Background(), alice, domain.AddTaskCall("late", false))
	assert.ErrorIs(t, err, ErrNodeStopped)
}

func TestNode_StopFailsQueuedCalls(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	// Never started, so calls stay queued
	node := NewNode(repo, Options{QueueSize: 4})
	tx, err := node.Send(context.Background(), alice, domain.AddTaskCall("queued", false))
	require.NoError(t, err)

	node.Stop()

	_, err = tx.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNodeStopped)
}

func TestNode_CancelledStartContextStopsNode(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	node := NewNode(repo, Options{QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	node.Start(ctx)

	receipt, err := send(t, node, alice, domain.AddTaskCall("before", false))
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())

	cancel()

	require.Eventually(t, func() bool {
		_, err := node.Submit(context.Background(), alice, domain.AddTaskCall("after", false))
		return stderrors.Is(err, ErrNodeStopped)
	}, 5*time.Second, 10*time.Millisecond)

	// Nothing is left queued behind the stopped worker
	require.Eventually(t, func() bool {
		node.pendingMu.Lock()
		defer node.pendingMu.Unlock()
		return len(node.queue) == 0 && len(node.pending) == 0
	}, 5*time.Second, 10*time.Millisecond)

	node.Stop()
}

func TestNode_CancelledStartContextFailsQueuedCalls(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	node := NewNode(repo, Options{QueueSize: 4})
	queued := make([]*PendingTx, 0, 3)
	for i := 0; i < 3; i++ {
		tx, err := node.Send(context.Background(), alice, domain.AddTaskCall(fmt.Sprintf("queued %d", i), false))
		require.NoError(t, err)
		queued = append(queued, tx)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	node.Start(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()

	// The worker may confirm some of the backlog before it sees ctx is
	// done; every call still settles one way or the other.
	for _, tx := range queued {
		receipt, err := tx.Wait(waitCtx)
		if err != nil {
			assert.ErrorIs(t, err, ErrNodeStopped)
			continue
		}
		assert.True(t, receipt.Succeeded())
	}

	_, err = node.Submit(context.Background(), alice, domain.AddTaskCall("late", false))
	assert.ErrorIs(t, err, ErrNodeStopped)
	node.Stop()
}

// failingInsertRepo runs transactions whose task inserts fail in storage
type failingInsertRepo struct {
	sqlite.Repository
}

func (r failingInsertRepo) WithTx(ctx context.Context, fn func(q sqlite.Queries) error) error {
	return r.Repository.WithTx(ctx, func(q sqlite.Queries) error {
		return fn(failingInsertQueries{q})
	})
}

type failingInsertQueries struct {
	sqlite.Queries
}

func (failingInsertQueries) CreateTask(ctx context.Context, task *sqlite.Task) error {
	return errors.NewDatabaseError("insert task", io.ErrUnexpectedEOF)
}

func TestNode_StorageFailureIsNotARevert(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	node := NewNode(failingInsertRepo{repo}, Options{QueueSize: 4})
	node.Start(context.Background())
	defer node.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	txID, err := node.Submit(ctx, alice, domain.AddTaskCall("lost", false))
	require.NoError(t, err)

	receipt, err := node.WaitForReceipt(ctx, txID)
	require.Error(t, err)
	assert.Nil(t, receipt)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeDatabase))
	assert.False(t, errors.IsErrorType(err, errors.ErrorTypeReverted))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// No block was produced and no receipt recorded
	_, err = node.Receipt(ctx, txID)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))
	block, err := node.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block)

	// Contract refusals still revert on the same node
	receipt, err = send(t, node, alice, domain.EditTaskCall(0, "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeReverted))
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())
	assert.Equal(t, int64(1), receipt.Block)
}

func TestIsRevert(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", errors.NewNotFoundError("task", "0"), true},
		{"permission", errors.NewPermissionError("edit", "task 0"), true},
		{"invalid input", errors.NewInvalidInputError("from", "", "sender is required"), true},
		{"database", errors.NewDatabaseError("insert task", io.ErrUnexpectedEOF), false},
		{"database wrapping not found", errors.NewDatabaseError("load task", errors.NewNotFoundError("task", "0")), false},
		{"timeout", errors.NewTimeoutError("apply", "5s"), false},
		{"plain", io.ErrUnexpectedEOF, false},
		{"context", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRevert(tt.err))
		})
	}
}

func TestPendingTx_WaitHonorsContext(t *testing.T) {
	tx := newPendingTx("tx", alice, domain.AddTaskCall("x", false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tx.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	tx.complete(&domain.Receipt{TxID: "tx", Status: domain.StatusSuccess}, nil)
	tx.complete(nil, ErrNodeStopped) // first result wins
	<-tx.Done()

	receipt, err := tx.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tx", receipt.TxID)
}
