package domain

import (
	"task-ledger/internal/repository/sqlite"
)

// TaskMapper handles conversion between domain and database Task models.
type TaskMapper struct{}

// NewTaskMapper creates a new TaskMapper instance.
func NewTaskMapper() *TaskMapper {
	return &TaskMapper{}
}

// ToDatabase converts a domain Task to a database Task.
func (m *TaskMapper) ToDatabase(domainTask Task) sqlite.Task {
	return sqlite.Task{
		Owner:     string(domainTask.Owner),
		ID:        domainTask.ID,
		TaskText:  domainTask.TaskText,
		IsDeleted: domainTask.IsDeleted,
		CreatedAt: domainTask.CreatedAt,
		UpdatedAt: domainTask.UpdatedAt,
	}
}

// FromDatabase converts a database Task to a domain Task.
func (m *TaskMapper) FromDatabase(dbTask sqlite.Task) Task {
	return Task{
		ID:        dbTask.ID,
		Owner:     Address(dbTask.Owner),
		TaskText:  dbTask.TaskText,
		IsDeleted: dbTask.IsDeleted,
		CreatedAt: dbTask.CreatedAt,
		UpdatedAt: dbTask.UpdatedAt,
	}
}

// FromDatabaseSlice converts a slice of database Tasks to domain Tasks.
func (m *TaskMapper) FromDatabaseSlice(dbTasks []*sqlite.Task) []Task {
	domainTasks := make([]Task, len(dbTasks))
	for i, task := range dbTasks {
		domainTasks[i] = m.FromDatabase(*task)
	}
	return domainTasks
}

// EventMapper handles conversion between domain and database Event models.
type EventMapper struct{}

// NewEventMapper creates a new EventMapper instance.
func NewEventMapper() *EventMapper {
	return &EventMapper{}
}

// ToDatabase converts a domain Event to a database Event.
func (m *EventMapper) ToDatabase(event Event) sqlite.Event {
	return sqlite.Event{
		Seq:     event.Seq,
		TxID:    event.TxID,
		Block:   event.Block,
		Name:    string(event.Name),
		Owner:   string(event.Owner),
		TaskID:  event.TaskID,
		Deleted: event.Deleted,
	}
}

// FromDatabase converts a database Event to a domain Event.
func (m *EventMapper) FromDatabase(dbEvent sqlite.Event) Event {
	return Event{
		Seq:     dbEvent.Seq,
		TxID:    dbEvent.TxID,
		Block:   dbEvent.Block,
		Name:    EventName(dbEvent.Name),
		Owner:   Address(dbEvent.Owner),
		TaskID:  dbEvent.TaskID,
		Deleted: dbEvent.Deleted,
	}
}

// FromDatabaseSlice converts a slice of database Events to domain Events.
func (m *EventMapper) FromDatabaseSlice(dbEvents []*sqlite.Event) []Event {
	events := make([]Event, len(dbEvents))
	for i, event := range dbEvents {
		events[i] = m.FromDatabase(*event)
	}
	return events
}

// ReceiptMapper handles conversion between domain and database Receipt models.
type ReceiptMapper struct{}

// NewReceiptMapper creates a new ReceiptMapper instance.
func NewReceiptMapper() *ReceiptMapper {
	return &ReceiptMapper{}
}

// ToDatabase converts a domain Receipt to a database Receipt. Events are
// stored separately.
func (m *ReceiptMapper) ToDatabase(receipt Receipt) sqlite.Receipt {
	return sqlite.Receipt{
		TxID:      receipt.TxID,
		Block:     receipt.Block,
		Sender:    string(receipt.From),
		Method:    string(receipt.Method),
		Status:    string(receipt.Status),
		Error:     receipt.Error,
		CreatedAt: receipt.CreatedAt,
	}
}

// FromDatabase converts a database Receipt and its events to a domain Receipt.
func (m *ReceiptMapper) FromDatabase(dbReceipt sqlite.Receipt, events []Event) Receipt {
	if events == nil {
		events = []Event{}
	}
	return Receipt{
		TxID:      dbReceipt.TxID,
		Block:     dbReceipt.Block,
		From:      Address(dbReceipt.Sender),
		Method:    Method(dbReceipt.Method),
		Status:    ReceiptStatus(dbReceipt.Status),
		Error:     dbReceipt.Error,
		Events:    events,
		CreatedAt: dbReceipt.CreatedAt,
	}
}

// Mapper provides a unified interface for all mapping operations.
type Mapper struct {
	Task    *TaskMapper
	Event   *EventMapper
	Receipt *ReceiptMapper
}

// NewMapper creates a new Mapper instance with all sub-mappers.
func NewMapper() *Mapper {
	return &Mapper{
		Task:    NewTaskMapper(),
		Event:   NewEventMapper(),
		Receipt: NewReceiptMapper(),
	}
}
