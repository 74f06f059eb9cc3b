package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"task-ledger/internal/api"
	"task-ledger/internal/config"
	"task-ledger/internal/errors"
)

// App represents the main CLI application
type App struct {
	api      api.API
	config   *config.Config
	registry *CommandRegistry
	out      io.Writer
}

// NewApp creates a new CLI application instance with dependency injection
func NewApp(api api.API) *App {
	return NewAppWithConfig(api, config.NewConfig())
}

// NewAppWithConfig creates a CLI application that honors cfg
func NewAppWithConfig(api api.API, cfg *config.Config) *App {
	app := &App{
		api:    api,
		config: cfg,
		out:    os.Stdout,
	}
	app.registry = NewCommandRegistry(app)
	return app
}

// SetOutput redirects command output, stdout by default
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// Run executes the CLI application with the given arguments
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s", a.registry.GetUsage())
	}

	commandName := args[0]
	commandArgs := args[1:]

	return a.registry.Execute(ctx, commandName, commandArgs)
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// parseTaskID parses a task id argument such as "3"
func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, errors.NewInvalidInputError("task_id", arg, "must be an integer")
	}
	return id, nil
}
