package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tomlord1122/todo-service/internal/database/dbtest"
	"github.com/Tomlord1122/todo-service/internal/domain"
)

func setupRepo(t *testing.T) TodoRepository {
	t.Helper()
	return NewGormTodoRepository(dbtest.New(t).GetDB())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func seed(t *testing.T, repo TodoRepository, todos ...domain.Todo) []domain.Todo {
	t.Helper()
	out := make([]domain.Todo, 0, len(todos))
	for _, todo := range todos {
		todo := todo
		require.NoError(t, repo.Create(context.Background(), &todo))
		out = append(out, todo)
	}
	return out
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	repo := setupRepo(t)
	created := seed(t, repo,
		domain.Todo{Title: "first"},
		domain.Todo{Title: "second", Description: strPtr("details"), Completed: true},
	)

	assert.NotZero(t, created[0].ID)
	assert.Greater(t, created[1].ID, created[0].ID)
	for _, todo := range created {
		assert.False(t, todo.CreatedAt.IsZero())
		assert.True(t, todo.CreatedAt.Equal(todo.UpdatedAt))
	}

	got, err := repo.FindByID(context.Background(), created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "details", *got.Description)
	assert.True(t, got.Completed)
	assert.True(t, got.CreatedAt.Equal(created[1].CreatedAt))
}

func TestFindByIDNotFound(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.FindByID(context.Background(), 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "Todo with id 9999 not found")
}

func TestList(t *testing.T) {
	repo := setupRepo(t)
	seed(t, repo,
		domain.Todo{Title: "Buy milk"},
		domain.Todo{Title: "Walk dog", Completed: true},
		domain.Todo{Title: "Read", Description: strPtr("a book about MILK production")},
		domain.Todo{Title: "100% done", Completed: true},
		domain.Todo{Title: "snake_case"},
	)
	ctx := context.Background()

	tests := []struct {
		name      string
		filter    ListFilter
		wantTotal int64
		wantTitle []string
	}{
		{
			name:      "all newest first",
			filter:    ListFilter{Page: 1, PerPage: 10},
			wantTotal: 5,
			wantTitle: []string{"snake_case", "100% done", "Read", "Walk dog", "Buy milk"},
		},
		{
			name:      "completed only",
			filter:    ListFilter{Completed: boolPtr(true), Page: 1, PerPage: 10},
			wantTotal: 2,
			wantTitle: []string{"100% done", "Walk dog"},
		},
		{
			name:      "pending only",
			filter:    ListFilter{Completed: boolPtr(false), Page: 1, PerPage: 10},
			wantTotal: 3,
			wantTitle: []string{"snake_case", "Read", "Buy milk"},
		},
		{
			name:      "search matches title and description case-insensitively",
			filter:    ListFilter{Search: "milk", Page: 1, PerPage: 10},
			wantTotal: 2,
			wantTitle: []string{"Read", "Buy milk"},
		},
		{
			name:      "search combined with completed filter",
			filter:    ListFilter{Search: "milk", Completed: boolPtr(false), Page: 1, PerPage: 10},
			wantTotal: 2,
			wantTitle: []string{"Read", "Buy milk"},
		},
		{
			name:      "percent is matched literally",
			filter:    ListFilter{Search: "%", Page: 1, PerPage: 10},
			wantTotal: 1,
			wantTitle: []string{"100% done"},
		},
		{
			name:      "underscore is matched literally",
			filter:    ListFilter{Search: "_", Page: 1, PerPage: 10},
			wantTotal: 1,
			wantTitle: []string{"snake_case"},
		},
		{
			name:      "second page",
			filter:    ListFilter{Page: 2, PerPage: 2},
			wantTotal: 5,
			wantTitle: []string{"Read", "Walk dog"},
		},
		{
			name:      "page past the end",
			filter:    ListFilter{Page: 4, PerPage: 2},
			wantTotal: 5,
			wantTitle: []string{},
		},
		{
			name:      "no matches",
			filter:    ListFilter{Search: "nothing like this", Page: 1, PerPage: 10},
			wantTotal: 0,
			wantTitle: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todos, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			titles := make([]string, 0, len(todos))
			for _, todo := range todos {
				titles = append(titles, todo.Title)
			}
			assert.Equal(t, tt.wantTitle, titles)
		})
	}
}

func TestListPagesCoverEveryRowOnce(t *testing.T) {
	repo := setupRepo(t)
	for i := 0; i < 7; i++ {
		seed(t, repo, domain.Todo{Title: fmt.Sprintf("todo %d", i)})
	}
	ctx := context.Background()

	all, total, err := repo.List(ctx, ListFilter{Page: 1, PerPage: 100})
	require.NoError(t, err)
	require.Equal(t, int64(7), total)

	var paged []domain.Todo
	for page := 1; page <= 3; page++ {
		todos, total, err := repo.List(ctx, ListFilter{Page: page, PerPage: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		assert.LessOrEqual(t, len(todos), 3)
		paged = append(paged, todos...)
	}

	require.Len(t, paged, len(all))
	for i := range all {
		assert.Equal(t, all[i].ID, paged[i].ID)
	}
}

func TestUpdate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	orig := seed(t, repo, domain.Todo{Title: "original", Description: strPtr("keep me")})[0]

	updated, err := repo.Update(ctx, orig.ID, map[string]any{"title": "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "keep me", *updated.Description)
	assert.False(t, updated.Completed)
	assert.True(t, updated.CreatedAt.Equal(orig.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(orig.UpdatedAt))

	cleared, err := repo.Update(ctx, orig.ID, map[string]any{"description": nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)
	assert.Equal(t, "renamed", cleared.Title)

	_, err = repo.Update(ctx, orig.ID+100, map[string]any{"title": "ghost"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToggle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	orig := seed(t, repo, domain.Todo{Title: "flip me"})[0]

	once, err := repo.Toggle(ctx, orig.ID)
	require.NoError(t, err)
	assert.True(t, once.Completed)
	assert.True(t, once.UpdatedAt.After(orig.UpdatedAt))

	twice, err := repo.Toggle(ctx, orig.ID)
	require.NoError(t, err)
	assert.False(t, twice.Completed)
	assert.True(t, twice.UpdatedAt.After(once.UpdatedAt))

	_, err = repo.Toggle(ctx, 4242)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	orig := seed(t, repo, domain.Todo{Title: "short lived"})[0]

	require.NoError(t, repo.Delete(ctx, orig.ID))

	_, err := repo.FindByID(ctx, orig.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Delete(ctx, orig.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIDsAreNeverReused(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := seed(t, repo, domain.Todo{Title: "older"}, domain.Todo{Title: "newest"})
	highest := created[1]

	require.NoError(t, repo.Delete(ctx, highest.ID))
	next := seed(t, repo, domain.Todo{Title: "after delete"})[0]
	assert.Greater(t, next.ID, highest.ID)

	require.NoError(t, repo.Delete(ctx, created[0].ID))
	require.NoError(t, repo.Delete(ctx, next.ID))
	last := seed(t, repo, domain.Todo{Title: "empty table"})[0]
	assert.Greater(t, last.ID, next.ID)
}

func TestListSearchFoldsUnicodeCase(t *testing.T) {
	repo := setupRepo(t)
	seed(t, repo,
		domain.Todo{Title: "Éclair"},
		domain.Todo{Title: "Dessert", Description: strPtr("CRÈME brûlée")},
		domain.Todo{Title: "Straße fegen"},
		domain.Todo{Title: "eclair without accent"},
	)
	ctx := context.Background()

	tests := []struct {
		search    string
		wantTitle []string
	}{
		{search: "Éclair", wantTitle: []string{"Éclair"}},
		{search: "éclair", wantTitle: []string{"Éclair"}},
		{search: "ÉCLAIR", wantTitle: []string{"Éclair"}},
		{search: "crème", wantTitle: []string{"Dessert"}},
		{search: "BRÛLÉE", wantTitle: []string{"Dessert"}},
		{search: "STRASSE", wantTitle: []string{}},
		{search: "straße", wantTitle: []string{"Straße fegen"}},
		{search: "ECLAIR", wantTitle: []string{"eclair without accent"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			todos, total, err := repo.List(ctx, ListFilter{Search: tt.search, Page: 1, PerPage: 10})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.wantTitle)), total)
			titles := make([]string, 0, len(todos))
			for _, todo := range todos {
				titles = append(titles, todo.Title)
			}
			assert.Equal(t, tt.wantTitle, titles)
		})
	}
}

func TestCountByStatus(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	total, completed, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, completed)

	seed(t, repo,
		domain.Todo{Title: "a", Completed: true},
		domain.Todo{Title: "b"},
		domain.Todo{Title: "c"},
	)
	total, completed, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), completed)
}

// statementCounter is a GORM logger that counts executed statements.
type statementCounter struct {
	n int
}

func (c *statementCounter) LogMode(logger.LogLevel) logger.Interface      { return c }
func (c *statementCounter) Info(context.Context, string, ...interface{})  {}
func (c *statementCounter) Warn(context.Context, string, ...interface{})  {}
func (c *statementCounter) Error(context.Context, string, ...interface{}) {}
func (c *statementCounter) Trace(context.Context, time.Time, func() (string, int64), error) {
	c.n++
}

func TestCountByStatusUsesOneStatement(t *testing.T) {
	db := dbtest.New(t).GetDB()
	seed(t, NewGormTodoRepository(db),
		domain.Todo{Title: "done", Completed: true},
		domain.Todo{Title: "open"},
	)

	counter := &statementCounter{}
	repo := NewGormTodoRepository(db.Session(&gorm.Session{Logger: counter}))
	total, completed, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, 1, counter.n)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\ ok`, escapeLike(`50% off_now \ ok`))
}
