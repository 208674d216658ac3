package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestTask(t *testing.T) *Task {
	t.Helper()
	return NewTask("owner-1", TaskDraft{Title: "  Write report ", Category: " work "}, baseTime)
}

func TestNewTaskTrimsAndStartsPending(t *testing.T) {
	task := newTestTask(t)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, "work", task.Category)
	assert.Equal(t, StatePending, task.State())
	assert.False(t, task.IsCompleted())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestToggleSetsAndClearsCompletionTime(t *testing.T) {
	task := newTestTask(t)

	require.NoError(t, task.Toggle(baseTime.Add(time.Minute)))
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, baseTime.Add(time.Minute), *task.CompletedAt)
	assert.Equal(t, StateCompleted, task.State())

	require.NoError(t, task.Toggle(baseTime.Add(2*time.Minute)))
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, StatePending, task.State())
}

func TestSetCompletedIsIdempotent(t *testing.T) {
	task := newTestTask(t)

	changed, err := task.SetCompleted(true, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	updated := task.UpdatedAt

	changed, err = task.SetCompleted(true, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, updated, task.UpdatedAt)
}

func TestSoftDeleteAndRestoreKeepCompletion(t *testing.T) {
	task := newTestTask(t)
	require.NoError(t, task.Toggle(baseTime.Add(time.Minute)))
	completedAt := *task.CompletedAt

	require.NoError(t, task.SoftDelete(baseTime.Add(2*time.Minute)))
	assert.Equal(t, StateDeleted, task.State())
	assert.ErrorIs(t, task.SoftDelete(baseTime.Add(3*time.Minute)), ErrTaskNotFound)
	assert.ErrorIs(t, task.Toggle(baseTime.Add(3*time.Minute)), ErrTaskNotFound)

	require.NoError(t, task.Restore(baseTime.Add(4*time.Minute)))
	assert.Equal(t, StateCompleted, task.State())
	assert.Equal(t, completedAt, *task.CompletedAt)
	assert.ErrorIs(t, task.Restore(baseTime.Add(5*time.Minute)), ErrTaskNotFound)
}

func TestTouchIsMonotonic(t *testing.T) {
	task := newTestTask(t)

	task.Touch(baseTime.Add(-time.Hour))
	assert.True(t, task.UpdatedAt.After(baseTime))
}

func TestApplyPatch(t *testing.T) {
	task := newTestTask(t)
	title := "Ship report"
	priority := PriorityHigh
	done := true

	require.NoError(t, task.Apply(TaskPatch{Title: &title, Priority: &priority, IsCompleted: &done}, baseTime.Add(time.Minute)))
	assert.Equal(t, "Ship report", task.Title)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.True(t, task.IsCompleted())
	assert.Equal(t, "work", task.Category)
	assert.Equal(t, baseTime.Add(time.Minute), task.UpdatedAt)

	require.NoError(t, task.SoftDelete(baseTime.Add(2*time.Minute)))
	assert.ErrorIs(t, task.Apply(TaskPatch{Title: &title}, baseTime.Add(3*time.Minute)), ErrTaskNotFound)
}

func TestApplyTouchesOnce(t *testing.T) {
	task := newTestTask(t)
	done := true

	require.NoError(t, task.Apply(TaskPatch{IsCompleted: &done}, baseTime.Add(time.Minute)))
	assert.Equal(t, baseTime.Add(time.Minute), task.UpdatedAt)
	assert.Equal(t, baseTime.Add(time.Minute), *task.CompletedAt)

	// Already completed: nothing changes state, the patch still counts as an edit.
	require.NoError(t, task.Apply(TaskPatch{IsCompleted: &done}, baseTime.Add(2*time.Minute)))
	assert.Equal(t, baseTime.Add(2*time.Minute), task.UpdatedAt)
	assert.Equal(t, baseTime.Add(time.Minute), *task.CompletedAt)
}

func TestTaskJSONCarriesDerivedFields(t *testing.T) {
	task := newTestTask(t)
	require.NoError(t, task.Toggle(baseTime.Add(time.Minute)))

	raw, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["is_completed"])
	assert.Equal(t, "completed", decoded["state"])
	assert.Equal(t, "owner-1", decoded["owner_id"])

	var back Task
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, task.ID, back.ID)
	assert.True(t, back.IsCompleted())
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "urgent", PriorityUrgent.String())
	assert.Equal(t, "unknown", Priority(9).String())
	assert.False(t, Priority(-1).Valid())
}
