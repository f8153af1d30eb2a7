package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pscheid92/taskhub/internal/domain"
)

// Cache keys are namespaced as <resource>:<scope>:<suffix> so a whole query
// family can be invalidated with one <resource>:<scope>:* pattern. Listing
// keys additionally embed the querying user and a canonical hash of the
// filter, so distinct query shapes never collide.

const (
	// TaskListPattern matches every cached listing page for every user.
	TaskListPattern = "task:list:*"

	// AnalyticsPattern matches every cached analytics aggregate.
	AnalyticsPattern = "analytics:*"

	// AnalyticsSummaryKey holds the workspace-wide status/priority aggregate.
	AnalyticsSummaryKey = "analytics:summary:global"
)

// TaskDetailKey returns the cache key for a single task snapshot.
func TaskDetailKey(taskID uuid.UUID) string {
	return "task:detail:" + taskID.String()
}

// TaskListKey returns the cache key for one page of a filtered listing as
// seen by one user.
func TaskListKey(userID uuid.UUID, filter domain.TaskFilter) string {
	return fmt.Sprintf("task:list:%s:%s", userID, canonicalFilterHash(filter))
}

// canonicalFilterHash reduces a filter to a stable hex digest. Fields are
// serialized in a fixed order so logically equal filters always produce the
// same key.
func canonicalFilterHash(f domain.TaskFilter) string {
	var b strings.Builder
	b.WriteString("status=")
	b.WriteString(string(f.Status))
	b.WriteString("&priority=")
	b.WriteString(string(f.Priority))
	b.WriteString("&assigned_to=")
	if f.AssignedTo != nil {
		b.WriteString(f.AssignedTo.String())
	}
	b.WriteString("&search=")
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Search)))
	b.WriteString("&tag=")
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Tag)))
	b.WriteString("&sort_by=")
	b.WriteString(f.SortBy)
	b.WriteString("&sort_order=")
	b.WriteString(f.SortOrder)
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(f.Page))
	b.WriteString("&page_size=")
	b.WriteString(strconv.Itoa(f.PageSize))

	h := fnv.New64a()
	_, _ = h.Write([]byte(b.String()))
	return strconv.FormatUint(h.Sum64(), 16)
}
