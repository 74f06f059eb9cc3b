package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/repository/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = domain.MustParseAddress("0x5b38da6a701c568545dcfcb03fcb875f56beddc4")
	other = domain.MustParseAddress("0xab8483f64d9c6d1ecf9b849ae677dd3315835cb2")
)

func setupContract(t *testing.T) *Contract {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return New(repo)
}

func msgFrom(sender domain.Address, n int) Msg {
	return Msg{Sender: sender, TxID: fmt.Sprintf("tx-%d", n), Block: int64(n)}
}

func taskIDs(tasks []domain.Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestAddTask_SequentialIDs(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	for want := int64(0); want < 4; want++ {
		id, err := contract.AddTask(ctx, msgFrom(owner, int(want)), fmt.Sprintf("task %d", want), false)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestAddTask_EmptyTextAndInitialFlag(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	id, err := contract.AddTask(ctx, msgFrom(owner, 1), "", false)
	require.NoError(t, err)

	hiddenID, err := contract.AddTask(ctx, msgFrom(owner, 2), "born deleted", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hiddenID)

	tasks, err := contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, "", tasks[0].TaskText)

	hidden, err := contract.GetTask(ctx, owner, hiddenID)
	require.NoError(t, err)
	assert.True(t, hidden.IsDeleted)
}

func TestAddTask_EmitsEvent(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	events, err := contract.Execute(ctx, msgFrom(owner, 7), domain.AddTaskCall("hello", false))
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, domain.EventAddTask, event.Name)
	assert.Equal(t, owner, event.Owner)
	assert.Equal(t, int64(0), event.TaskID)
	assert.Equal(t, "tx-7", event.TxID)
	assert.Equal(t, int64(7), event.Block)
	assert.Greater(t, event.Seq, int64(0))
}

func TestEditTask_ChangesOnlyText(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	_, err := contract.AddTask(ctx, msgFrom(owner, 1), "first", false)
	require.NoError(t, err)
	id, err := contract.AddTask(ctx, msgFrom(owner, 2), "second", true)
	require.NoError(t, err)

	events, err := contract.Execute(ctx, msgFrom(owner, 3), domain.EditTaskCall(id, "second, edited"))
	require.NoError(t, err)
	assert.Empty(t, events, "editTask emits nothing")

	task, err := contract.GetTask(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, "second, edited", task.TaskText)
	assert.True(t, task.IsDeleted, "deleted flag untouched")
	assert.Equal(t, owner, task.Owner)
}

func TestEditTask_OutOfRange(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	_, err := contract.AddTask(ctx, msgFrom(owner, 1), "only", false)
	require.NoError(t, err)

	for _, id := range []int64{1, 99, -1} {
		err := contract.EditTask(ctx, msgFrom(owner, 2), id, "x")
		require.Error(t, err, "id %d", id)
		assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))
	}

	task, err := contract.GetTask(ctx, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, "only", task.TaskText)
}

func TestDeleteTask_HideAndRestore(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := contract.AddTask(ctx, msgFrom(owner, i), fmt.Sprintf("t%d", i), false)
		require.NoError(t, err)
	}

	require.NoError(t, contract.DeleteTask(ctx, msgFrom(owner, 3), 1, true))
	tasks, err := contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2}, taskIDs(tasks))

	// Still retrievable by id
	deleted, err := contract.GetTask(ctx, owner, 1)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	require.NoError(t, contract.DeleteTask(ctx, msgFrom(owner, 4), 1, false))
	tasks, err = contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, taskIDs(tasks), "restored task keeps its position")

	err = contract.DeleteTask(ctx, msgFrom(owner, 5), 3, true)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))
}

func TestAccountsAreIsolated(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	_, err := contract.AddTask(ctx, msgFrom(owner, 1), "owner's", false)
	require.NoError(t, err)
	otherID, err := contract.AddTask(ctx, msgFrom(other, 2), "other's", false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), otherID, "ids are scoped per account")

	mine, err := contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "owner's", mine[0].TaskText)

	theirs, err := contract.GetMyTasks(ctx, other)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "other's", theirs[0].TaskText)

	// other editing "their" id 0 touches only their own record
	require.NoError(t, contract.EditTask(ctx, msgFrom(other, 3), 0, "changed"))
	mine, err = contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "owner's", mine[0].TaskText)

	// owner has a task 1, other does not
	_, err = contract.AddTask(ctx, msgFrom(owner, 4), "owner's second", false)
	require.NoError(t, err)
	err = contract.DeleteTask(ctx, msgFrom(other, 5), 1, true)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))
}

func TestScenario_FiveTasks(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := contract.AddTask(ctx, msgFrom(owner, i+1), fmt.Sprintf("Task number :-%d", i), false)
		require.NoError(t, err)
	}

	tasks, err := contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	for i, task := range tasks {
		assert.Equal(t, int64(i), task.ID)
		assert.Equal(t, fmt.Sprintf("Task number :-%d", i), task.TaskText)
		assert.False(t, task.IsDeleted)
	}

	events, err := contract.Execute(ctx, msgFrom(owner, 6), domain.AddTaskCall("New Task", false))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fmt.Sprintf("AddTask(%s, 5)", owner), events[0].String())

	events, err = contract.Execute(ctx, msgFrom(owner, 7), domain.DeleteTaskCall(0, true))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "DeleteTask(0, true)", events[0].String())

	tasks, err = contract.GetMyTasks(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, taskIDs(tasks))

	all, err := contract.Events(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestExecute_RevertLeavesNoPartialEffect(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	_, err := contract.Execute(ctx, msgFrom(owner, 1), domain.DeleteTaskCall(0, true))
	require.Error(t, err)

	events, err := contract.Events(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, events)

	id, err := contract.AddTask(ctx, msgFrom(owner, 2), "first", false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
}

func TestApply_RejectsBadInput(t *testing.T) {
	contract := setupContract(t)
	ctx := context.Background()

	_, err := contract.Execute(ctx, Msg{TxID: "tx"}, domain.AddTaskCall("x", false))
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidInput))

	_, err = contract.Execute(ctx, msgFrom(owner, 1), domain.Call{Method: "transfer"})
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeInvalidInput))
}

// misfiledQueries returns a record owned by someone else, as a storage
// layout that did not partition by account would.
type misfiledQueries struct {
	sqlite.Queries
	task sqlite.Task
}

func (m *misfiledQueries) GetTask(ctx context.Context, owner string, id int64) (*sqlite.Task, error) {
	task := m.task
	return &task, nil
}

func TestApply_ExplicitOwnerCheck(t *testing.T) {
	contract := setupContract(t)
	q := &misfiledQueries{task: sqlite.Task{Owner: other.String(), ID: 0, TaskText: "not yours"}}

	for _, call := range []domain.Call{domain.EditTaskCall(0, "mine now"), domain.DeleteTaskCall(0, true)} {
		_, err := contract.Apply(context.Background(), q, msgFrom(owner, 1), call)
		require.Error(t, err, call.Method)
		assert.True(t, errors.IsErrorType(err, errors.ErrorTypePermission))
	}
}

func TestGetTask_Missing(t *testing.T) {
	contract := setupContract(t)

	_, err := contract.GetTask(context.Background(), owner, 0)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))

	_, err = contract.GetTask(context.Background(), owner, -3)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeNotFound))
}
