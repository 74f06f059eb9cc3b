package cli

import (
	"context"
	"strings"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
)

const timeFormat = "2006-01-02 15:04:05"

// AddCommand handles the add command
type AddCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewAddCommand creates a new add command handler
func NewAddCommand(app *App) *AddCommand {
	return &AddCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute signs an addTask call with the joined arguments as text
func (c *AddCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.NewInvalidInputError("command", "add", "usage: tl add \"your task here\"")
	}
	text := strings.Join(args, " ")

	tasks, err := c.app.api.AddTask(ctx, text)
	if err != nil {
		return c.errorHandler.Handle("add task", err)
	}

	if added, ok := newest(tasks); ok {
		c.app.printf("Added task #%d: %s\n", added.ID, added.TaskText)
	}
	printTasks(c.app, tasks)
	return nil
}

// EditCommand handles the edit command
type EditCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewEditCommand creates a new edit command handler
func NewEditCommand(app *App) *EditCommand {
	return &EditCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute replaces the text of one task
func (c *EditCommand) Execute(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.NewInvalidInputError("command", "edit", "usage: tl edit <id> \"new text\"")
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return c.errorHandler.Handle("edit task", err)
	}
	text := strings.Join(args[1:], " ")

	tasks, err := c.app.api.EditTask(ctx, id, text)
	if err != nil {
		return c.errorHandler.Handle("edit task", err)
	}

	c.app.printf("Updated task #%d: %s\n", id, text)
	printTasks(c.app, tasks)
	return nil
}

// DeleteCommand handles the delete and restore commands. Both set the
// deleted flag of a task; nothing is ever removed from the ledger.
type DeleteCommand struct {
	app          *App
	deleted      bool
	errorHandler *ErrorHandler
}

// NewDeleteCommand creates a handler that hides a task
func NewDeleteCommand(app *App) *DeleteCommand {
	return &DeleteCommand{app: app, deleted: true, errorHandler: NewErrorHandler()}
}

// NewRestoreCommand creates a handler that brings a deleted task back
func NewRestoreCommand(app *App) *DeleteCommand {
	return &DeleteCommand{app: app, deleted: false, errorHandler: NewErrorHandler()}
}

// Execute runs the command
func (c *DeleteCommand) Execute(ctx context.Context, args []string) error {
	name, verb := "delete", "Deleted"
	if !c.deleted {
		name, verb = "restore", "Restored"
	}
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", name, "usage: tl "+name+" <id>")
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return c.errorHandler.Handle(name+" task", err)
	}

	var tasks []domain.Task
	if c.deleted {
		tasks, err = c.app.api.DeleteTask(ctx, id)
	} else {
		tasks, err = c.app.api.RestoreTask(ctx, id)
	}
	if err != nil {
		return c.errorHandler.Handle(name+" task", err)
	}

	c.app.printf("%s task #%d\n", verb, id)
	printTasks(c.app, tasks)
	return nil
}

// ListCommand handles the list command
type ListCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewListCommand creates a new list command handler
func NewListCommand(app *App) *ListCommand {
	return &ListCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute prints the caller's visible tasks
func (c *ListCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.NewInvalidInputError("command", "list", "usage: tl list")
	}
	tasks, err := c.app.api.ListTasks(ctx)
	if err != nil {
		return c.errorHandler.Handle("list tasks", err)
	}
	printTasks(c.app, tasks)
	return nil
}

// ShowCommand handles the show command
type ShowCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewShowCommand creates a new show command handler
func NewShowCommand(app *App) *ShowCommand {
	return &ShowCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute prints one task, including deleted ones
func (c *ShowCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.NewInvalidInputError("command", "show", "usage: tl show <id>")
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return c.errorHandler.Handle("show task", err)
	}

	task, err := c.app.api.GetTask(ctx, id)
	if err != nil {
		return c.errorHandler.Handle("show task", err)
	}

	status := "active"
	if task.IsDeleted {
		status = "deleted"
	}
	c.app.printf("ID:      %d\n", task.ID)
	c.app.printf("Owner:   %s\n", task.Owner)
	c.app.printf("Text:    %s\n", task.TaskText)
	c.app.printf("Status:  %s\n", status)
	if !task.UpdatedAt.IsZero() {
		c.app.printf("Updated: %s\n", task.UpdatedAt.Local().Format(timeFormat))
	}
	return nil
}

func printTasks(app *App, tasks []domain.Task) {
	if len(tasks) == 0 {
		app.printf("No tasks found\n")
		return
	}
	for _, task := range tasks {
		app.printf("%4d  %s\n", task.ID, task.TaskText)
	}
}

// newest returns the task with the highest id
func newest(tasks []domain.Task) (domain.Task, bool) {
	if len(tasks) == 0 {
		return domain.Task{}, false
	}
	latest := tasks[0]
	for _, task := range tasks[1:] {
		if task.ID > latest.ID {
			latest = task
		}
	}
	return latest, true
}
