package domain

import "fmt"

// EventName identifies the kind of ledger event
type EventName string

const (
	EventAddTask    EventName = "AddTask"
	EventDeleteTask EventName = "DeleteTask"
)

// Event is emitted by a successful mutating call
type Event struct {
	Seq     int64     `json:"seq"`
	TxID    string    `json:"tx_id"`
	Block   int64     `json:"block"`
	Name    EventName `json:"name"`
	Owner   Address   `json:"owner"`
	TaskID  int64     `json:"task_id"`
	Deleted bool      `json:"deleted"`
}

// NewAddTaskEvent carries the owner and the id assigned to the new task
func NewAddTaskEvent(owner Address, taskID int64) Event {
	return Event{Name: EventAddTask, Owner: owner, TaskID: taskID}
}

// NewDeleteTaskEvent carries the task id and the flag it was set to
func NewDeleteTaskEvent(owner Address, taskID int64, deleted bool) Event {
	return Event{Name: EventDeleteTask, Owner: owner, TaskID: taskID, Deleted: deleted}
}

// String renders the event with its arguments, e.g. AddTask(0xabc…, 5)
func (e Event) String() string {
	switch e.Name {
	case EventAddTask:
		return fmt.Sprintf("%s(%s, %d)", e.Name, e.Owner, e.TaskID)
	case EventDeleteTask:
		return fmt.Sprintf("%s(%d, %t)", e.Name, e.TaskID, e.Deleted)
	default:
		return string(e.Name)
	}
}
