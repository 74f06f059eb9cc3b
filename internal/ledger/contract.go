// Package ledger implements the task contract: per-account append-only task
// lists with sequential ids, soft deletion and owner-only mutation.
package ledger

import (
	"context"
	"fmt"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/logging"
	"task-ledger/internal/repository/sqlite"
)

// Msg is the transaction context a mutating call executes under
type Msg struct {
	Sender domain.Address
	TxID   string
	Block  int64
}

// Contract holds every account's task list in the injected repository.
// Mutating calls run inside a single storage transaction, so a call that
// reverts leaves no partial effect.
type Contract struct {
	repo   sqlite.Repository
	mapper *domain.Mapper
}

// New creates a Contract backed by repo
func New(repo sqlite.Repository) *Contract {
	return &Contract{
		repo:   repo,
		mapper: domain.NewMapper(),
	}
}

// AddTask appends a task to the sender's list and returns its id
func (c *Contract) AddTask(ctx context.Context, msg Msg, text string, deleted bool) (int64, error) {
	events, err := c.Execute(ctx, msg, domain.AddTaskCall(text, deleted))
	if err != nil {
		return 0, err
	}
	return events[0].TaskID, nil
}

// EditTask replaces the text of one of the sender's tasks
func (c *Contract) EditTask(ctx context.Context, msg Msg, taskID int64, text string) error {
	_, err := c.Execute(ctx, msg, domain.EditTaskCall(taskID, text))
	return err
}

// DeleteTask sets the deleted flag of one of the sender's tasks. Passing
// false restores the task.
func (c *Contract) DeleteTask(ctx context.Context, msg Msg, taskID int64, deleted bool) error {
	_, err := c.Execute(ctx, msg, domain.DeleteTaskCall(taskID, deleted))
	return err
}

// Execute runs call in its own storage transaction and returns the events it emitted
func (c *Contract) Execute(ctx context.Context, msg Msg, call domain.Call) ([]domain.Event, error) {
	var events []domain.Event
	err := c.repo.WithTx(ctx, func(q sqlite.Queries) error {
		var err error
		events, err = c.Apply(ctx, q, msg, call)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Apply runs call against q, which the caller has already scoped to a
// transaction. Any returned error means the transaction must be rolled back.
func (c *Contract) Apply(ctx context.Context, q sqlite.Queries, msg Msg, call domain.Call) ([]domain.Event, error) {
	if msg.Sender == "" {
		return nil, errors.NewInvalidInputError("sender", msg.Sender, "sender is required")
	}

	logging.Debugf("ledger: %s from %s in tx %s", call.Method, msg.Sender, msg.TxID)

	switch call.Method {
	case domain.MethodAddTask:
		return c.addTask(ctx, q, msg, call.Text, call.Deleted)
	case domain.MethodEditTask:
		return nil, c.editTask(ctx, q, msg, call.TaskID, call.Text)
	case domain.MethodDeleteTask:
		return c.deleteTask(ctx, q, msg, call.TaskID, call.Deleted)
	default:
		return nil, errors.NewInvalidInputError("method", call.Method, "unknown contract method")
	}
}

func (c *Contract) addTask(ctx context.Context, q sqlite.Queries, msg Msg, text string, deleted bool) ([]domain.Event, error) {
	id, err := q.ReserveTaskID(ctx, msg.Sender.String())
	if err != nil {
		return nil, err
	}

	dbTask := c.mapper.Task.ToDatabase(domain.NewTask(msg.Sender, id, text, deleted))
	if err := q.CreateTask(ctx, &dbTask); err != nil {
		return nil, err
	}

	event, err := c.emit(ctx, q, msg, domain.NewAddTaskEvent(msg.Sender, id))
	if err != nil {
		return nil, err
	}
	return []domain.Event{event}, nil
}

func (c *Contract) editTask(ctx context.Context, q sqlite.Queries, msg Msg, taskID int64, text string) error {
	task, err := c.ownedTask(ctx, q, msg.Sender, taskID, domain.MethodEditTask)
	if err != nil {
		return err
	}

	task.TaskText = text
	dbTask := c.mapper.Task.ToDatabase(*task)
	return q.UpdateTask(ctx, &dbTask)
}

func (c *Contract) deleteTask(ctx context.Context, q sqlite.Queries, msg Msg, taskID int64, deleted bool) ([]domain.Event, error) {
	task, err := c.ownedTask(ctx, q, msg.Sender, taskID, domain.MethodDeleteTask)
	if err != nil {
		return nil, err
	}

	task.IsDeleted = deleted
	dbTask := c.mapper.Task.ToDatabase(*task)
	if err := q.UpdateTask(ctx, &dbTask); err != nil {
		return nil, err
	}

	event, err := c.emit(ctx, q, msg, domain.NewDeleteTaskEvent(msg.Sender, taskID, deleted))
	if err != nil {
		return nil, err
	}
	return []domain.Event{event}, nil
}

// ownedTask loads taskID from the sender's list and checks ownership
// explicitly instead of relying on the per-account lookup alone.
func (c *Contract) ownedTask(ctx context.Context, q sqlite.Queries, sender domain.Address, taskID int64, method domain.Method) (*domain.Task, error) {
	if taskID < 0 {
		return nil, errors.NewNotFoundError("task", fmt.Sprintf("%d", taskID))
	}

	dbTask, err := q.GetTask(ctx, sender.String(), taskID)
	if err != nil {
		return nil, err
	}

	task := c.mapper.Task.FromDatabase(*dbTask)
	if !task.OwnedBy(sender) {
		return nil, errors.NewPermissionError(string(method), fmt.Sprintf("task %d", taskID))
	}
	return &task, nil
}

func (c *Contract) emit(ctx context.Context, q sqlite.Queries, msg Msg, event domain.Event) (domain.Event, error) {
	event.TxID = msg.TxID
	event.Block = msg.Block

	dbEvent := c.mapper.Event.ToDatabase(event)
	if err := q.CreateEvent(ctx, &dbEvent); err != nil {
		return domain.Event{}, err
	}
	event.Seq = dbEvent.Seq

	logging.Debugf("ledger: emitted %s", event)
	return event, nil
}

// GetMyTasks returns the caller's tasks that are not deleted, in insertion order
func (c *Contract) GetMyTasks(ctx context.Context, caller domain.Address) ([]domain.Task, error) {
	dbTasks, err := c.repo.ListTasks(ctx, caller.String(), false)
	if err != nil {
		return nil, err
	}
	return c.mapper.Task.FromDatabaseSlice(dbTasks), nil
}

// GetTask returns one of the caller's tasks by id, including deleted ones
func (c *Contract) GetTask(ctx context.Context, caller domain.Address, taskID int64) (*domain.Task, error) {
	if taskID < 0 {
		return nil, errors.NewNotFoundError("task", fmt.Sprintf("%d", taskID))
	}

	dbTask, err := c.repo.GetTask(ctx, caller.String(), taskID)
	if err != nil {
		return nil, err
	}
	task := c.mapper.Task.FromDatabase(*dbTask)
	return &task, nil
}

// Events returns the emitted events, optionally restricted to one owner
func (c *Contract) Events(ctx context.Context, owner domain.Address) ([]domain.Event, error) {
	filter := sqlite.EventFilter{}
	if owner != "" {
		o := owner.String()
		filter.Owner = &o
	}

	dbEvents, err := c.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	return c.mapper.Event.FromDatabaseSlice(dbEvents), nil
}

// TxEvents returns the events emitted by one transaction, read through q
func (c *Contract) TxEvents(ctx context.Context, q sqlite.Queries, txID string) ([]domain.Event, error) {
	dbEvents, err := q.ListEvents(ctx, sqlite.EventFilter{TxID: &txID})
	if err != nil {
		return nil, err
	}
	return c.mapper.Event.FromDatabaseSlice(dbEvents), nil
}
