package cache

import (
	"path"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/taskhub/internal/domain"
)

func TestTaskDetailKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "task:detail:11111111-2222-3333-4444-555555555555", TaskDetailKey(id))
}

func TestTaskListKey_StableForEqualFilters(t *testing.T) {
	user := uuid.New()
	a := domain.TaskFilter{Status: domain.StatusTodo, Search: "Deploy", Page: 1, PageSize: 10}
	b := domain.TaskFilter{Status: domain.StatusTodo, Search: "Deploy", Page: 1, PageSize: 10}
	assert.Equal(t, TaskListKey(user, a), TaskListKey(user, b))
}

func TestTaskListKey_DistinctQueryShapesDoNotCollide(t *testing.T) {
	user := uuid.New()
	base := domain.TaskFilter{Status: domain.StatusTodo, Page: 1, PageSize: 10}

	variants := []domain.TaskFilter{
		{Status: domain.StatusInProgress, Page: 1, PageSize: 10},
		{Status: domain.StatusTodo, Page: 2, PageSize: 10},
		{Status: domain.StatusTodo, Page: 1, PageSize: 20},
		{Status: domain.StatusTodo, Search: "deploy", Page: 1, PageSize: 10},
		{Status: domain.StatusTodo, Tag: "ops", Page: 1, PageSize: 10},
		{Status: domain.StatusTodo, SortBy: "due_date", Page: 1, PageSize: 10},
	}

	baseKey := TaskListKey(user, base)
	seen := map[string]struct{}{baseKey: {}}
	for _, v := range variants {
		key := TaskListKey(user, v)
		_, dup := seen[key]
		assert.False(t, dup, "filter %+v collided", v)
		seen[key] = struct{}{}
	}
}

func TestTaskListKey_ScopedPerUser(t *testing.T) {
	filter := domain.TaskFilter{Page: 1, PageSize: 10}
	assert.NotEqual(t, TaskListKey(uuid.New(), filter), TaskListKey(uuid.New(), filter))
}

func TestTaskListKey_SearchNormalized(t *testing.T) {
	user := uuid.New()
	a := domain.TaskFilter{Search: "  Deploy ", Page: 1, PageSize: 10}
	b := domain.TaskFilter{Search: "deploy", Page: 1, PageSize: 10}
	assert.Equal(t, TaskListKey(user, a), TaskListKey(user, b))
}

func TestPatterns_MatchTheirFamilies(t *testing.T) {
	user := uuid.New()
	listKey := TaskListKey(user, domain.TaskFilter{Page: 1, PageSize: 10})

	matched, err := path.Match(TaskListPattern, listKey)
	assert.NoError(t, err)
	assert.True(t, matched)

	matched, err = path.Match(AnalyticsPattern, AnalyticsSummaryKey)
	assert.NoError(t, err)
	assert.True(t, matched)

	matched, _ = path.Match(TaskListPattern, TaskDetailKey(uuid.New()))
	assert.False(t, matched)
}
