package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/domain"
)

// ListFilter narrows and pages a todo listing. Page is 1-based.
type ListFilter struct {
	Completed *bool
	Search    string
	Page      int
	PerPage   int
}

// TodoRepository defines the interface for todo data operations.
// Lookups that match no row return a *domain.NotFoundError.
type TodoRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) TodoRepository

	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id uint) (*domain.Todo, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Todo, int64, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*domain.Todo, error)
	Toggle(ctx context.Context, id uint) (*domain.Todo, error)
	Delete(ctx context.Context, id uint) error
	CountByStatus(ctx context.Context) (total int64, completed int64, err error)
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) WithTx(tx *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: tx}
}

// Create inserts todo; GORM fills in ID, CreatedAt and UpdatedAt.
func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).First(&todo, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{ID: id}
		}
		return nil, err
	}
	return &todo, nil
}

// List returns one page of matching todos, newest first, together with
// the number of matches before paging.
func (r *gormTodoRepository) List(ctx context.Context, filter ListFilter) ([]domain.Todo, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Todo{})
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.Search != "" {
		q = r.whereSearch(q, filter.Search)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	todos := make([]domain.Todo, 0, filter.PerPage)
	if total == 0 {
		return todos, 0, nil
	}

	offset := (filter.Page - 1) * filter.PerPage
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(filter.PerPage).
		Find(&todos).Error
	if err != nil {
		return nil, 0, err
	}
	return todos, total, nil
}

// Update applies fields to the row and refreshes updated_at in the same
// statement, then reads the row back.
func (r *gormTodoRepository) Update(ctx context.Context, id uint, fields map[string]any) (*domain.Todo, error) {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["updated_at"] = r.db.NowFunc()

	res := r.db.WithContext(ctx).Model(&domain.Todo{ID: id}).Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}
	return r.FindByID(ctx, id)
}

// Toggle flips completed in a single statement so concurrent toggles are
// serialized by the database.
func (r *gormTodoRepository) Toggle(ctx context.Context, id uint) (*domain.Todo, error) {
	return r.Update(ctx, id, map[string]any{"completed": gorm.Expr("NOT completed")})
}

// Delete removes the row permanently.
func (r *gormTodoRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Todo{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return nil
}

// CountByStatus reads both counts in one statement so they come from the
// same snapshot.
func (r *gormTodoRepository) CountByStatus(ctx context.Context) (int64, int64, error) {
	var row struct {
		Total     int64
		Completed int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Todo{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Completed, nil
}

// whereSearch matches search case-insensitively against title or
// description. Postgres uses ILIKE; SQLite folds both sides through the
// Unicode-aware function registered by the database package.
func (r *gormTodoRepository) whereSearch(q *gorm.DB, search string) *gorm.DB {
	if r.db.Dialector.Name() == database.DialectSQLite {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		lower := database.SQLiteLowerFunc
		return q.Where(`(`+lower+`(title) LIKE ? ESCAPE '\' OR `+lower+`(COALESCE(description, '')) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	pattern := "%" + escapeLike(search) + "%"
	return q.Where(`(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')`, pattern, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
