package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_String(t *testing.T) {
	add := NewAddTaskEvent(alice, 5)
	assert.Equal(t, "AddTask(0x00000000000000000000000000000000000000a1, 5)", add.String())

	del := NewDeleteTaskEvent(alice, 0, true)
	assert.Equal(t, "DeleteTask(0, true)", del.String())

	assert.Equal(t, "Other", Event{Name: "Other"}.String())
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{MethodAddTask, MethodEditTask, MethodDeleteTask} {
		parsed, err := ParseMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMethod("getMyTasks")
	assert.Error(t, err)
}

func TestCallBuilders(t *testing.T) {
	assert.Equal(t, Call{Method: MethodAddTask, Text: "x"}, AddTaskCall("x", false))
	assert.Equal(t, Call{Method: MethodEditTask, TaskID: 2, Text: "y"}, EditTaskCall(2, "y"))
	assert.Equal(t, Call{Method: MethodDeleteTask, TaskID: 1, Deleted: true}, DeleteTaskCall(1, true))
}

func TestReceipt_Succeeded(t *testing.T) {
	assert.True(t, Receipt{Status: StatusSuccess}.Succeeded())
	assert.False(t, Receipt{Status: StatusReverted}.Succeeded())
}
