package sqlite

import "fmt"

// Scanner interface defines the common scanning behavior for both sql.Row and sql.Rows
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Rows interface defines the common behavior for sql.Rows
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// ScanTask scans a single task from a database row
func ScanTask(scanner Scanner) (*Task, error) {
	task := &Task{}
	var createdAt, updatedAt string

	err := scanner.Scan(
		&task.Owner,
		&task.ID,
		&task.TaskText,
		&task.IsDeleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if task.CreatedAt, err = ParseTimeFromDB(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = ParseTimeFromDB(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return task, nil
}

// ScanTasks scans multiple tasks from database rows
func ScanTasks(rows Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		task, err := ScanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// ScanEvent scans a single event from a database row
func ScanEvent(scanner Scanner) (*Event, error) {
	event := &Event{}
	err := scanner.Scan(
		&event.Seq,
		&event.TxID,
		&event.Block,
		&event.Name,
		&event.Owner,
		&event.TaskID,
		&event.Deleted,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ScanEvents scans multiple events from database rows
func ScanEvents(rows Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		event, err := ScanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// ScanReceipt scans a single receipt from a database row
func ScanReceipt(scanner Scanner) (*Receipt, error) {
	receipt := &Receipt{}
	var createdAt string

	err := scanner.Scan(
		&receipt.TxID,
		&receipt.Block,
		&receipt.Sender,
		&receipt.Method,
		&receipt.Status,
		&receipt.Error,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if receipt.CreatedAt, err = ParseTimeFromDB(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return receipt, nil
}
