package api

import (
	"context"

	"task-ledger/internal/domain"
)

// Backend is the node-side call interface the bridge signs transactions
// against. It is implemented by the in-process node and by the HTTP client.
type Backend interface {
	// ChainID reports the network the backend is attached to
	ChainID(ctx context.Context) (uint64, error)

	// Submit sends a mutating call from an account and returns the transaction id
	Submit(ctx context.Context, from domain.Address, call domain.Call) (string, error)

	// WaitForReceipt blocks until the transaction is confirmed. A reverted
	// transaction returns its receipt along with a reverted error.
	WaitForReceipt(ctx context.Context, txID string) (*domain.Receipt, error)

	// Read-only contract calls
	GetMyTasks(ctx context.Context, account domain.Address) ([]domain.Task, error)
	GetTask(ctx context.Context, account domain.Address, taskID int64) (*domain.Task, error)
	Events(ctx context.Context, owner domain.Address) ([]domain.Event, error)
}
