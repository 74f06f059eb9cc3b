package sqlite

import "time"

// Task is a row of the tasks table. Rows are keyed by (Owner, ID).
type Task struct {
	Owner     string
	ID        int64
	TaskText  string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a row of the events table
type Event struct {
	Seq     int64
	TxID    string
	Block   int64
	Name    string
	Owner   string
	TaskID  int64
	Deleted bool
}

// Receipt is a row of the receipts table, one per confirmed transaction
type Receipt struct {
	TxID      string
	Block     int64
	Sender    string
	Method    string
	Status    string
	Error     string
	CreatedAt time.Time
}

// EventFilter narrows ListEvents. Nil fields are ignored.
type EventFilter struct {
	Owner *string
	TxID  *string
	Name  *string
}
