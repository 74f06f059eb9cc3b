package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"task-ledger/internal/errors"
	"task-ledger/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Queries defines the ledger storage operations. Implementations run either
// directly against the database or inside a transaction opened by WithTx.
type Queries interface {
	// Account operations
	ReserveTaskID(ctx context.Context, owner string) (int64, error)
	NextTaskID(ctx context.Context, owner string) (int64, error)

	// Task operations
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, owner string, id int64) (*Task, error)
	ListTasks(ctx context.Context, owner string, includeDeleted bool) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error

	// Event operations
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)

	// Receipt operations
	CreateReceipt(ctx context.Context, receipt *Receipt) error
	GetReceipt(ctx context.Context, txID string) (*Receipt, error)
	LatestBlock(ctx context.Context) (int64, error)
}

// Repository defines the interface for database operations
type Repository interface {
	Queries

	// WithTx runs fn inside a single database transaction. The transaction
	// commits when fn returns nil and rolls back otherwise. fn must only use
	// the Queries it is given.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	// Utility
	Close() error
}

// Options tunes the underlying connection pool
type Options struct {
	BusyTimeout time.Duration
}

// SQLiteRepository implements the Repository interface
type SQLiteRepository struct {
	*queries
	db *sql.DB
}

type queries struct {
	db  DBTX
	now func() time.Time
}

// New creates a new SQLite repository instance
func New(dbPath string) (*SQLiteRepository, error) {
	return NewWithOptions(dbPath, Options{BusyTimeout: 5 * time.Second})
}

// NewWithOptions creates a new SQLite repository instance with tuned options
func NewWithOptions(dbPath string, opts Options) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.NewDatabaseError("open database", err)
	}

	// A single connection serializes writers and keeps :memory: databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if opts.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds())
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.NewDatabaseError("set busy timeout", err)
		}
	}

	// Run migrations
	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("run migrations", err)
	}

	return &SQLiteRepository{
		queries: &queries{db: db, now: time.Now},
		db:      db,
	}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// WithTx runs fn inside a database transaction
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return HandleDatabaseError("begin transaction", err)
	}

	if err := fn(&queries{db: tx, now: r.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return HandleDatabaseError("rollback transaction", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return HandleDatabaseError("commit transaction", err)
	}
	return nil
}

// ReserveTaskID returns the owner's next task id and advances the counter
func (q *queries) ReserveTaskID(ctx context.Context, owner string) (int64, error) {
	query := `
	INSERT INTO accounts (address, next_task_id) VALUES (?, 1)
	ON CONFLICT (address) DO UPDATE SET next_task_id = next_task_id + 1`

	if err := Execute(ctx, q.db, query, owner); err != nil {
		return 0, err
	}

	next, err := q.NextTaskID(ctx, owner)
	if err != nil {
		return 0, err
	}
	return next - 1, nil
}

// NextTaskID returns the id the owner's next task will receive
func (q *queries) NextTaskID(ctx context.Context, owner string) (int64, error) {
	var next int64
	err := q.db.QueryRowContext(ctx, `SELECT next_task_id FROM accounts WHERE address = ?`, owner).Scan(&next)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, HandleDatabaseError("read task counter", err)
	}
	return next, nil
}

// CreateTask inserts a task row. The caller assigns Owner and ID.
func (q *queries) CreateTask(ctx context.Context, task *Task) error {
	now := q.now()
	query := `
	INSERT INTO tasks (owner, id, task_text, is_deleted, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	if err := Execute(ctx, q.db, query, task.Owner, task.ID, task.TaskText, task.IsDeleted, FormatTimeForDB(now), FormatTimeForDB(now)); err != nil {
		return err
	}

	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetTask retrieves one of the owner's tasks by id, deleted or not
func (q *queries) GetTask(ctx context.Context, owner string, id int64) (*Task, error) {
	query := `
	SELECT owner, id, task_text, is_deleted, created_at, updated_at
	FROM tasks
	WHERE owner = ? AND id = ?`

	return QuerySingle(ctx, q.db, query, ScanTask, "task", fmt.Sprintf("%d", id), owner, id)
}

// ListTasks retrieves the owner's tasks in insertion order
func (q *queries) ListTasks(ctx context.Context, owner string, includeDeleted bool) ([]*Task, error) {
	query := `
	SELECT owner, id, task_text, is_deleted, created_at, updated_at
	FROM tasks
	WHERE owner = ?`
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	query += " ORDER BY id ASC"

	return QueryMultiple(ctx, q.db, query, ScanTasks, "tasks", owner)
}

// UpdateTask writes the mutable columns of a task. Owner and ID select the row.
func (q *queries) UpdateTask(ctx context.Context, task *Task) error {
	now := q.now()
	query := `
	UPDATE tasks
	SET task_text = ?, is_deleted = ?, updated_at = ?
	WHERE owner = ? AND id = ?`

	err := ExecuteWithRowsAffected(ctx, q.db, query, "task", fmt.Sprintf("%d", task.ID),
		task.TaskText, task.IsDeleted, FormatTimeForDB(now), task.Owner, task.ID)
	if err != nil {
		return err
	}
	task.UpdatedAt = now
	return nil
}

// CreateEvent appends an event to the log
func (q *queries) CreateEvent(ctx context.Context, event *Event) error {
	query := `
	INSERT INTO events (tx_id, block, name, owner, task_id, deleted)
	VALUES (?, ?, ?, ?, ?, ?)`

	seq, err := ExecuteWithLastInsertID(ctx, q.db, query, event.TxID, event.Block, event.Name, event.Owner, event.TaskID, event.Deleted)
	if err != nil {
		return err
	}
	event.Seq = seq
	return nil
}

// ListEvents searches the event log in emission order
func (q *queries) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	var conditions []string
	var args []interface{}

	if filter.Owner != nil {
		conditions = append(conditions, "owner = ?")
		args = append(args, *filter.Owner)
	}
	if filter.TxID != nil {
		conditions = append(conditions, "tx_id = ?")
		args = append(args, *filter.TxID)
	}
	if filter.Name != nil {
		conditions = append(conditions, "name = ?")
		args = append(args, *filter.Name)
	}

	query := `
	SELECT seq, tx_id, block, name, owner, task_id, deleted
	FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq ASC"

	return QueryMultiple(ctx, q.db, query, ScanEvents, "events", args...)
}

// CreateReceipt stores the outcome of a confirmed transaction
func (q *queries) CreateReceipt(ctx context.Context, receipt *Receipt) error {
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = q.now()
	}
	query := `
	INSERT INTO receipts (tx_id, block, sender, method, status, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	return Execute(ctx, q.db, query, receipt.TxID, receipt.Block, receipt.Sender, receipt.Method,
		receipt.Status, receipt.Error, FormatTimeForDB(receipt.CreatedAt))
}

// GetReceipt retrieves a receipt by transaction id
func (q *queries) GetReceipt(ctx context.Context, txID string) (*Receipt, error) {
	query := `
	SELECT tx_id, block, sender, method, status, error, created_at
	FROM receipts
	WHERE tx_id = ?`

	return QuerySingle(ctx, q.db, query, ScanReceipt, "receipt", txID, txID)
}

// LatestBlock returns the highest confirmed block number, or 0 for an empty ledger
func (q *queries) LatestBlock(ctx context.Context) (int64, error) {
	var block sql.NullInt64
	if err := q.db.QueryRowContext(ctx, `SELECT MAX(block) FROM receipts`).Scan(&block); err != nil {
		return 0, HandleDatabaseError("read latest block", err)
	}
	return block.Int64, nil
}
