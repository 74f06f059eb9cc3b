package sqlite

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScanner implements the Scanner interface for testing
type TestScanner struct {
	data []interface{}
	err  error
}

func (ts *TestScanner) Scan(dest ...interface{}) error {
	if ts.err != nil {
		return ts.err
	}

	if len(dest) != len(ts.data) {
		return errors.New("mismatch in number of destinations")
	}

	for i, d := range dest {
		switch v := d.(type) {
		case *int64:
			*v = ts.data[i].(int64)
		case *string:
			*v = ts.data[i].(string)
		case *bool:
			*v = ts.data[i].(bool)
		}
	}

	return nil
}

// TestRows implements the Rows interface over a list of scanners
type TestRows struct {
	rows []*TestScanner
	pos  int
	err  error
}

func (tr *TestRows) Next() bool {
	if tr.pos >= len(tr.rows) {
		return false
	}
	tr.pos++
	return true
}

func (tr *TestRows) Scan(dest ...interface{}) error {
	return tr.rows[tr.pos-1].Scan(dest...)
}

func (tr *TestRows) Err() error {
	return tr.err
}

const testOwner = "0x00000000000000000000000000000000000000aa"

func taskRow(id int64, text string, deleted bool) *TestScanner {
	return &TestScanner{data: []interface{}{
		testOwner, id, text, deleted, "2024-01-15T10:00:00Z", "2024-01-15T11:00:00Z",
	}}
}

func TestScanTask(t *testing.T) {
	tests := []struct {
		name        string
		scanner     *TestScanner
		expectError bool
	}{
		{
			name:    "Valid active task",
			scanner: taskRow(0, "Task number :-0", false),
		},
		{
			name:    "Valid deleted task",
			scanner: taskRow(3, "", true),
		},
		{
			name:        "No rows",
			scanner:     &TestScanner{err: sql.ErrNoRows},
			expectError: true,
		},
		{
			name: "Bad timestamp",
			scanner: &TestScanner{data: []interface{}{
				testOwner, int64(1), "x", false, "yesterday", "2024-01-15T11:00:00Z",
			}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ScanTask(tt.scanner)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, task)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testOwner, task.Owner)
			assert.Equal(t, tt.scanner.data[1], task.ID)
			assert.Equal(t, tt.scanner.data[2], task.TaskText)
			assert.Equal(t, tt.scanner.data[3], task.IsDeleted)
			assert.Equal(t, 10, task.CreatedAt.Hour())
			assert.Equal(t, 11, task.UpdatedAt.Hour())
		})
	}
}

func TestScanTasks(t *testing.T) {
	rows := &TestRows{rows: []*TestScanner{
		taskRow(0, "first", false),
		taskRow(1, "second", true),
	}}

	tasks, err := ScanTasks(rows)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].TaskText)
	assert.True(t, tasks[1].IsDeleted)

	_, err = ScanTasks(&TestRows{err: errors.New("cursor failed")})
	assert.Error(t, err)
}

func TestScanEvent(t *testing.T) {
	scanner := &TestScanner{data: []interface{}{
		int64(1), "tx-1", int64(4), "DeleteTask", testOwner, int64(0), true,
	}}

	event, err := ScanEvent(scanner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), event.Seq)
	assert.Equal(t, "tx-1", event.TxID)
	assert.Equal(t, int64(4), event.Block)
	assert.Equal(t, "DeleteTask", event.Name)
	assert.True(t, event.Deleted)

	events, err := ScanEvents(&TestRows{rows: []*TestScanner{scanner}})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestScanReceipt(t *testing.T) {
	scanner := &TestScanner{data: []interface{}{
		"tx-2", int64(2), testOwner, "editTask", "reverted", "task not found: 9", "2024-01-15T10:00:00Z",
	}}

	receipt, err := ScanReceipt(scanner)
	require.NoError(t, err)
	assert.Equal(t, "tx-2", receipt.TxID)
	assert.Equal(t, "reverted", receipt.Status)
	assert.Equal(t, "task not found: 9", receipt.Error)
	assert.Equal(t, 2024, receipt.CreatedAt.Year())
}
