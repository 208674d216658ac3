package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTasks(t *testing.T, n int) []Task {
	t.Helper()
	tasks := make([]Task, 0, n)
	for i := 0; i < n; i++ {
		task := NewTask("owner-1", TaskDraft{
			Title:    fmt.Sprintf("task %02d", i),
			Priority: Priority(i % PriorityLevels),
		}, baseTime.Add(time.Duration(i)*time.Minute))
		tasks = append(tasks, *task)
	}
	return tasks
}

func TestParseSortField(t *testing.T) {
	assert.Equal(t, SortByUpdatedAt, ParseSortField("updatedAt"))
	assert.Equal(t, SortByUpdatedAt, ParseSortField("updated_at"))
	assert.Equal(t, SortByTitle, ParseSortField(" TITLE "))
	assert.Equal(t, SortByPriority, ParseSortField("priority"))
	assert.Equal(t, SortByCreatedAt, ParseSortField("bogus"))
	assert.Equal(t, SortByCreatedAt, ParseSortField(""))
}

func TestApplyDefaultsToNewestFirst(t *testing.T) {
	page := DefaultTaskQuery().Apply(seedTasks(t, 3))

	require.Len(t, page.Items, 3)
	assert.Equal(t, "task 02", page.Items[0].Title)
	assert.Equal(t, "task 00", page.Items[2].Title)
	assert.Equal(t, 1, page.TotalPages)
}

func TestApplyPagesPartitionTheResult(t *testing.T) {
	tasks := seedTasks(t, 45)
	q := DefaultTaskQuery()
	q.PageSize = 20

	seen := map[string]int{}
	for page := 1; page <= 3; page++ {
		q.Page = page
		result := q.Apply(tasks)
		assert.Equal(t, 45, result.TotalCount)
		assert.Equal(t, 3, result.TotalPages)
		for _, task := range result.Items {
			seen[task.ID]++
		}
	}
	assert.Len(t, seen, 45)
	for id, n := range seen {
		assert.Equal(t, 1, n, "task %s listed more than once", id)
	}

	q.Page = 3
	assert.Len(t, q.Apply(tasks).Items, 5)
}

func TestApplyPageBeyondRangeIsEmpty(t *testing.T) {
	q := DefaultTaskQuery()
	q.Page = 9

	page := q.Apply(seedTasks(t, 4))
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 4, page.TotalCount)
	assert.Equal(t, 9, page.CurrentPage)
}

func TestApplyFilters(t *testing.T) {
	tasks := seedTasks(t, 10)
	tasks[1].Deleted = true
	now := baseTime.Add(time.Hour)
	tasks[2].CompletedAt = &now
	tasks[3].Category = "home"

	q := DefaultTaskQuery()
	assert.Equal(t, 9, q.Apply(tasks).TotalCount)

	q.IncludeDeleted = true
	assert.Equal(t, 10, q.Apply(tasks).TotalCount)

	done := true
	q = DefaultTaskQuery()
	q.IsCompleted = &done
	page := q.Apply(tasks)
	require.Len(t, page.Items, 1)
	assert.Equal(t, tasks[2].ID, page.Items[0].ID)

	home := "home"
	q = DefaultTaskQuery()
	q.Category = &home
	assert.Equal(t, 1, q.Apply(tasks).TotalCount)

	urgent := PriorityUrgent
	q = DefaultTaskQuery()
	q.Priority = &urgent
	assert.Equal(t, 2, q.Apply(tasks).TotalCount)

	q = DefaultTaskQuery()
	q.OnlyDeleted = true
	page = q.Apply(tasks)
	require.Len(t, page.Items, 1)
	assert.Equal(t, tasks[1].ID, page.Items[0].ID)
}

func TestApplySortByPriorityAndTitle(t *testing.T) {
	tasks := seedTasks(t, 5)

	q := DefaultTaskQuery()
	q.SortBy = SortByPriority
	page := q.Apply(tasks)
	assert.Equal(t, PriorityUrgent, page.Items[0].Priority)
	assert.Equal(t, PriorityNormal, page.Items[4].Priority)

	tasks[0].Title = "beta"
	tasks[1].Title = "Alpha"
	tasks[2].Title = "gamma"
	q = TaskQuery{SortBy: SortByTitle, SortAscending: true, Page: 1, PageSize: 3}
	page = q.Apply(tasks[:3])
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, titles(page.Items))
}

func TestApplyBreaksTiesByIDInSortDirection(t *testing.T) {
	created := baseTime
	tasks := []Task{
		{ID: "b", Title: "same", CreatedAt: created},
		{ID: "c", Title: "same", CreatedAt: created},
		{ID: "a", Title: "same", CreatedAt: created},
	}

	q := DefaultTaskQuery()
	assert.Equal(t, []string{"c", "b", "a"}, ids(q.Apply(tasks).Items))

	q.SortAscending = true
	assert.Equal(t, []string{"a", "b", "c"}, ids(q.Apply(tasks).Items))

	q = TaskQuery{SortBy: SortByTitle, Page: 1, PageSize: 10}
	assert.Equal(t, []string{"c", "b", "a"}, ids(q.Apply(tasks).Items))
}

func TestNewTaskPageRoundsUp(t *testing.T) {
	assert.Equal(t, 0, NewTaskPage(nil, 0, 1, 20).TotalPages)
	assert.Equal(t, 1, NewTaskPage(nil, 20, 1, 20).TotalPages)
	assert.Equal(t, 2, NewTaskPage(nil, 21, 1, 20).TotalPages)
}

func titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Title
	}
	return out
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].ID
	}
	return out
}
