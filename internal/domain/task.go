package domain

import (
	"fmt"
	"time"
)

// Task is a to-do record owned by one account.
// Deleting a task only flips IsDeleted; the record itself is kept.
type Task struct {
	ID        int64     `json:"id"`
	Owner     Address   `json:"owner"`
	TaskText  string    `json:"task_text"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a new Task for owner with the given id and text.
func NewTask(owner Address, id int64, text string, deleted bool) Task {
	return Task{
		ID:        id,
		Owner:     owner,
		TaskText:  text,
		IsDeleted: deleted,
	}
}

// IsActive reports whether the task shows up in its owner's list.
func (t Task) IsActive() bool {
	return !t.IsDeleted
}

// OwnedBy reports whether account owns the task.
func (t Task) OwnedBy(account Address) bool {
	return t.Owner == account
}

// String returns the task for display purposes.
func (t Task) String() string {
	if t.IsDeleted {
		return fmt.Sprintf("#%d %s (deleted)", t.ID, t.TaskText)
	}
	return fmt.Sprintf("#%d %s", t.ID, t.TaskText)
}
