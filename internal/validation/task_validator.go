package validation

import (
	"task-ledger/internal/domain"
)

// TaskValidator provides validation for ledger calls before they are signed
type TaskValidator struct {
	validator *Validator
}

// NewTaskValidator creates a new task validator
func NewTaskValidator() *TaskValidator {
	return &TaskValidator{
		validator: NewValidator(),
	}
}

// NewTaskValidatorWithConfig creates a task validator honoring configured limits
func NewTaskValidatorWithConfig(v *Validator) *TaskValidator {
	return &TaskValidator{validator: v}
}

// ValidateTaskText validates task text. Any text, including the empty
// string, is accepted up to the configured length.
func (tv *TaskValidator) ValidateTaskText(text string) error {
	if !tv.validator.IsValidTextLength(text) {
		validationError := NewValidationError()
		validationError.AddInvalidLengthError("task_text", text, 0, tv.validator.MaxTextLength())
		return validationError
	}
	return nil
}

// ValidateTaskID validates a task ID
func (tv *TaskValidator) ValidateTaskID(id int64) error {
	if !tv.validator.IsValidTaskID(id) {
		validationError := NewValidationError()
		validationError.AddInvalidValueError("task_id", id, "must be a non-negative integer")
		return validationError
	}
	return nil
}

// ValidateAccount validates an account address
func (tv *TaskValidator) ValidateAccount(account string) error {
	validationError := NewValidationError()

	if !tv.validator.IsNonEmptyString(account) {
		validationError.AddRequiredError("account")
		return validationError
	}
	if !tv.validator.IsValidAddress(account) {
		validationError.AddInvalidFormatError("account", account, "0x followed by 40 hex digits")
		return validationError
	}

	return nil
}

// ValidateCall validates every field a call's method uses
func (tv *TaskValidator) ValidateCall(call domain.Call) error {
	validationError := NewValidationError()

	if _, err := domain.ParseMethod(string(call.Method)); err != nil {
		validationError.AddInvalidValueError("method", call.Method, "must be addTask, editTask or deleteTask")
		return validationError
	}

	if call.Method != domain.MethodAddTask {
		if idErr := tv.ValidateTaskID(call.TaskID); idErr != nil {
			validationError.Errors = append(validationError.Errors, idErr.(*ValidationError).Errors...)
		}
	}
	if call.Method != domain.MethodDeleteTask {
		if textErr := tv.ValidateTaskText(call.Text); textErr != nil {
			validationError.Errors = append(validationError.Errors, textErr.(*ValidationError).Errors...)
		}
	}

	if validationError.HasErrors() {
		return validationError
	}

	return nil
}
