package cli

import (
	"context"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
)

// EventsCommand prints the events emitted for the caller's tasks
type EventsCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewEventsCommand creates a new events command handler
func NewEventsCommand(app *App) *EventsCommand {
	return &EventsCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute runs the command
func (c *EventsCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.NewInvalidInputError("command", "events", "usage: tl events")
	}
	events, err := c.app.api.Events(ctx)
	if err != nil {
		return c.errorHandler.Handle("list events", err)
	}
	if len(events) == 0 {
		c.app.printf("No events found\n")
		return nil
	}
	for _, event := range events {
		c.app.printf("block %-6d %s  %s\n", event.Block, event.TxID, event)
	}
	return nil
}

// NetworkCommand reports the wallet account and the network it is on
type NetworkCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewNetworkCommand creates a new network command handler
func NewNetworkCommand(app *App) *NetworkCommand {
	return &NetworkCommand{app: app, errorHandler: NewErrorHandler()}
}

// Execute prints the status; a wrong network is reported, not failed
func (c *NetworkCommand) Execute(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.NewInvalidInputError("command", "network", "usage: tl network")
	}
	status, err := c.app.api.Network(ctx)
	if err != nil {
		return c.errorHandler.Handle("read network", err)
	}

	node := "local (" + c.app.config.GetDatabasePath() + ")"
	if c.app.config.UsesRemoteNode() {
		node = c.app.config.Node.URL
	}

	c.app.printf("Account: %s\n", status.Account)
	c.app.printf("Node:    %s\n", node)
	c.app.printf("Chain:   %d (%s)\n", status.ChainID, domain.FormatChainID(status.ChainID))
	if status.Connected {
		c.app.printf("Status:  connected\n")
		return nil
	}
	c.app.printf("Status:  wrong network, switch to chain %d (%s)\n",
		status.TargetChainID, domain.FormatChainID(status.TargetChainID))
	return nil
}
