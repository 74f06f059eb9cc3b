package domain

import (
	"time"

	"task-ledger/internal/errors"
)

// Method names a mutating contract call
type Method string

const (
	MethodAddTask    Method = "addTask"
	MethodEditTask   Method = "editTask"
	MethodDeleteTask Method = "deleteTask"
)

// ParseMethod validates a method name received from a client
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodAddTask, MethodEditTask, MethodDeleteTask:
		return m, nil
	default:
		return "", errors.NewInvalidInputError("method", s, "unknown contract method")
	}
}

// Call is the payload of a transaction. Which fields matter depends on Method:
// addTask uses Text and Deleted, editTask uses TaskID and Text, deleteTask
// uses TaskID and Deleted.
type Call struct {
	Method  Method `json:"method"`
	TaskID  int64  `json:"task_id"`
	Text    string `json:"text"`
	Deleted bool   `json:"deleted"`
}

// AddTaskCall builds an addTask call
func AddTaskCall(text string, deleted bool) Call {
	return Call{Method: MethodAddTask, Text: text, Deleted: deleted}
}

// EditTaskCall builds an editTask call
func EditTaskCall(taskID int64, text string) Call {
	return Call{Method: MethodEditTask, TaskID: taskID, Text: text}
}

// DeleteTaskCall builds a deleteTask call
func DeleteTaskCall(taskID int64, deleted bool) Call {
	return Call{Method: MethodDeleteTask, TaskID: taskID, Deleted: deleted}
}

// ReceiptStatus is the outcome of a confirmed transaction
type ReceiptStatus string

const (
	StatusSuccess  ReceiptStatus = "success"
	StatusReverted ReceiptStatus = "reverted"
)

// Receipt records how and where a transaction was confirmed
type Receipt struct {
	TxID      string        `json:"tx_id"`
	Block     int64         `json:"block"`
	From      Address       `json:"from"`
	Method    Method        `json:"method"`
	Status    ReceiptStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	Events    []Event       `json:"events"`
	CreatedAt time.Time     `json:"created_at"`
}

// Succeeded reports whether the transaction's state changes were applied
func (r Receipt) Succeeded() bool {
	return r.Status == StatusSuccess
}
