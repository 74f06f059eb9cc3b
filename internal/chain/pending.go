package chain

import (
	"context"
	"sync"

	"task-ledger/internal/domain"
)

// PendingTx is a submitted call waiting for its receipt
type PendingTx struct {
	ID   string
	From domain.Address
	Call domain.Call

	done    chan struct{}
	once    sync.Once
	receipt *domain.Receipt
	err     error
}

func newPendingTx(id string, from domain.Address, call domain.Call) *PendingTx {
	return &PendingTx{
		ID:   id,
		From: from,
		Call: call,
		done: make(chan struct{}),
	}
}

// Wait blocks until the transaction is confirmed or ctx is done. A reverted
// transaction returns its receipt along with the revert error.
func (p *PendingTx) Wait(ctx context.Context) (*domain.Receipt, error) {
	select {
	case <-p.done:
		return p.receipt, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the transaction has a result
func (p *PendingTx) Done() <-chan struct{} {
	return p.done
}

func (p *PendingTx) complete(receipt *domain.Receipt, err error) {
	p.once.Do(func() {
		p.receipt = receipt
		p.err = err
		close(p.done)
	})
}
