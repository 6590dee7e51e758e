package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

type queryFixture struct {
	tasks    *mocks.MemoryTaskStore
	projects *mocks.MemoryProjectStore
	query    *service.QueryService
	owner    uuid.UUID
	project  *domain.Project
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()

	tasks := mocks.NewMemoryTaskStore()
	projects := mocks.NewMemoryProjectStore()
	membership := service.NewMembershipAuthority(projects)

	owner := uuid.New()
	project, err := domain.NewProject("Eng", "engineering work", owner)
	require.NoError(t, err)
	require.NoError(t, projects.Create(context.Background(), project))

	return &queryFixture{
		tasks:    tasks,
		projects: projects,
		query:    service.NewQueryService(tasks, membership),
		owner:    owner,
		project:  project,
	}
}

func (f *queryFixture) addTask(t *testing.T, title string, mutate func(*domain.Task)) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(f.project.ID, title, "", "", "", nil)
	require.NoError(t, err)
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func TestQueryService_ListTasks_FilterByPriorityAndStatus(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	t1 := f.addTask(t, "T1", func(task *domain.Task) { task.Priority = domain.TaskPriorityHigh })
	t2 := f.addTask(t, "T2", func(task *domain.Task) { task.Status = domain.TaskStatusDone })
	f.addTask(t, "T3", nil)

	high := domain.TaskPriorityHigh
	page, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Priority: &high})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, t1.ID, page.Tasks[0].ID)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)

	done := domain.TaskStatusDone
	page, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Status: &done})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, t2.ID, page.Tasks[0].ID)
}

func TestQueryService_ListTasks_CursorWalk(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	f.addTask(t, "T1", func(task *domain.Task) { task.Priority = domain.TaskPriorityHigh })
	f.addTask(t, "T2", func(task *domain.Task) { task.Status = domain.TaskStatusDone })
	f.addTask(t, "T3", nil)

	page, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, 3, page.Total)

	rest, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Tasks, 1)
	assert.False(t, rest.HasMore)
	assert.Nil(t, rest.NextCursor)
}

// Walking the cursor to exhaustion must return the same id set, each id
// exactly once, as one unpaginated fetch — including when the sort field
// has duplicate values, which is what the id tie-break exists for.
func TestQueryService_ListTasks_PaginationCompleteness(t *testing.T) {
	t.Parallel()

	sorts := []struct {
		field store.TaskSortField
		order store.SortOrder
	}{
		{store.SortByCreatedAt, store.SortDesc},
		{store.SortByCreatedAt, store.SortAsc},
		{store.SortByPriority, store.SortDesc},
		{store.SortByPriority, store.SortAsc},
		{store.SortByTitle, store.SortAsc},
		{store.SortByDueDate, store.SortDesc},
	}

	for _, tc := range sorts {
		tc := tc
		t.Run(fmt.Sprintf("%s_%s", tc.field, tc.order), func(t *testing.T) {
			t.Parallel()
			f := newQueryFixture(t)
			ctx := context.Background()

			// Deliberate duplicates on every sort dimension: shared
			// createdAt, shared priority, shared title, nil due dates.
			createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			due := createdAt.Add(48 * time.Hour)
			for i := 0; i < 23; i++ {
				i := i
				f.addTask(t, fmt.Sprintf("task-%d", i%4), func(task *domain.Task) {
					task.CreatedAt = createdAt.Add(time.Duration(i%3) * time.Hour)
					task.Priority = []domain.TaskPriority{
						domain.TaskPriorityLow,
						domain.TaskPriorityMedium,
						domain.TaskPriorityHigh,
					}[i%3]
					if i%2 == 0 {
						task.DueDate = &due
					}
				})
			}

			full, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{
				SortBy: tc.field, Order: tc.order, Limit: 100,
			})
			require.NoError(t, err)
			require.Len(t, full.Tasks, 23)

			seen := make(map[uuid.UUID]int)
			var cursor *uuid.UUID
			pages := 0
			for {
				page, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{
					SortBy: tc.field, Order: tc.order, Limit: 5, Cursor: cursor,
				})
				require.NoError(t, err)
				for _, task := range page.Tasks {
					seen[task.ID]++
				}
				pages++
				require.Less(t, pages, 20, "cursor walk did not terminate")
				if !page.HasMore {
					break
				}
				cursor = page.NextCursor
			}

			require.Len(t, seen, 23, "paged walk must cover every task")
			for id, count := range seen {
				assert.Equal(t, 1, count, "task %s returned more than once", id)
			}
			for _, task := range full.Tasks {
				assert.Contains(t, seen, task.ID)
			}
		})
	}
}

func TestQueryService_ListTasks_ScopedToMembership(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	f.addTask(t, "visible", nil)

	// A second project the caller does not belong to.
	stranger := uuid.New()
	other, err := domain.NewProject("Other", "", stranger)
	require.NoError(t, err)
	require.NoError(t, f.projects.Create(ctx, other))
	hidden, err := domain.NewTask(other.ID, "hidden", "", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(ctx, hidden))

	page, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "visible", page.Tasks[0].Title)

	// Filtering by a project the caller is not a member of is rejected.
	_, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{ProjectID: &other.ID})
	assert.ErrorIs(t, err, service.ErrNotProjectMember)

	// A project that does not exist is reported as not-found, not as an
	// authorization failure.
	missing := uuid.New()
	_, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{ProjectID: &missing})
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestQueryService_ListTasks_InvalidInputs(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	_, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{SortBy: "bogus"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Order: "sideways"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	ghost := uuid.New()
	_, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Cursor: &ghost})
	assert.ErrorIs(t, err, service.ErrInvalidCursor)
}

func TestQueryService_ListTasks_ForeignCursorRejected(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	f.addTask(t, "mine", nil)

	// A live task, but in a project the caller cannot see. Using it as a
	// cursor is as invalid as using a deleted task.
	stranger := uuid.New()
	other, err := domain.NewProject("Other", "", stranger)
	require.NoError(t, err)
	require.NoError(t, f.projects.Create(ctx, other))
	foreign, err := domain.NewTask(other.ID, "theirs", "", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(ctx, foreign))

	_, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Cursor: &foreign.ID})
	assert.ErrorIs(t, err, service.ErrInvalidCursor)
}

func TestQueryService_ListTasks_LimitClamped(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		f.addTask(t, fmt.Sprintf("t%d", i), nil)
	}

	// Zero limit falls back to the default page size.
	page, err := f.query.ListTasks(ctx, f.owner, service.ListTasksInput{})
	require.NoError(t, err)
	assert.Len(t, page.Tasks, service.DefaultListLimit)
	assert.True(t, page.HasMore)

	// An oversized limit is clamped to the maximum.
	page, err = f.query.ListTasks(ctx, f.owner, service.ListTasksInput{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, page.Tasks, 25)
	assert.False(t, page.HasMore)
}

func TestQueryService_SearchTasks_RelevanceOrdering(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	commentOnly := f.addTask(t, "unrelated", func(task *domain.Task) {
		task.CreatedAt = base
		task.Comments = []domain.Comment{{ID: uuid.New(), AuthorID: f.owner, Text: "deploy pipeline is broken", CreatedAt: base}}
	})
	titleOnly := f.addTask(t, "Fix deploy script", func(task *domain.Task) {
		task.CreatedAt = base.Add(time.Hour)
	})
	descAndComment := f.addTask(t, "Release prep", func(task *domain.Task) {
		task.CreatedAt = base.Add(2 * time.Hour)
		task.Description = "blocked on deploy credentials"
		task.Comments = []domain.Comment{{ID: uuid.New(), AuthorID: f.owner, Text: "deploy once more", CreatedAt: base}}
	})

	result, err := f.query.SearchTasks(ctx, f.owner, service.SearchTasksInput{Query: "deploy"})
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, 3, result.Total)

	// Title-only scores 3; description+comment scores 2+1=3; they tie at
	// the top resolved by createdAt desc, and both outrank the
	// comment-only match (score 1).
	assert.Equal(t, descAndComment.ID, result.Matches[0].Task.ID)
	assert.Equal(t, 3, result.Matches[0].Score)
	assert.Equal(t, titleOnly.ID, result.Matches[1].Task.ID)
	assert.Equal(t, 3, result.Matches[1].Score)
	assert.Equal(t, commentOnly.ID, result.Matches[2].Task.ID)
	assert.Equal(t, 1, result.Matches[2].Score)
}

func TestQueryService_SearchTasks_AdditiveScore(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	f.addTask(t, "Deploy service", func(task *domain.Task) {
		task.Description = "deploy to staging"
		task.Comments = []domain.Comment{{ID: uuid.New(), AuthorID: f.owner, Text: "deploy done", CreatedAt: time.Now().UTC()}}
	})

	result, err := f.query.SearchTasks(ctx, f.owner, service.SearchTasksInput{Query: "DEPLOY"})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 6, result.Matches[0].Score, "title+description+comment should score 3+2+1")
}

func TestQueryService_SearchTasks_MatchDetails(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)
	ctx := context.Background()

	long := "ship " + strings.Repeat("αβγδε", 30) // multi-byte, 155 runes total
	now := time.Now().UTC()
	f.addTask(t, "Ship it", func(task *domain.Task) {
		task.Comments = []domain.Comment{
			{ID: uuid.New(), AuthorID: f.owner, Text: long, CreatedAt: now},
			{ID: uuid.New(), AuthorID: f.owner, Text: "ship tomorrow", CreatedAt: now},
			{ID: uuid.New(), AuthorID: f.owner, Text: "ship next week", CreatedAt: now},
			{ID: uuid.New(), AuthorID: f.owner, Text: "ship eventually", CreatedAt: now},
		}
	})

	result, err := f.query.SearchTasks(ctx, f.owner, service.SearchTasksInput{
		Query:               "ship",
		IncludeMatchDetails: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	details := result.Matches[0].Details
	require.NotNil(t, details)

	assert.True(t, details.TitleMatched)
	assert.False(t, details.DescriptionMatched)
	assert.Equal(t, 4, details.MatchingComments)
	require.Len(t, details.CommentSnippets, 3, "at most three snippets")
	assert.Equal(t, 100, len([]rune(details.CommentSnippets[0])), "snippets truncate at 100 code points")
}

func TestQueryService_SearchTasks_EmptyQuery(t *testing.T) {
	t.Parallel()
	f := newQueryFixture(t)

	_, err := f.query.SearchTasks(context.Background(), f.owner, service.SearchTasksInput{Query: "   "})
	assert.ErrorIs(t, err, service.ErrQueryTooShort)
}
