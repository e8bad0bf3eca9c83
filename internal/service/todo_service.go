package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/repository"
)

// Transactor runs fn inside a database transaction that is committed on
// success and rolled back on any error. database.Service implements it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TodoService defines the operations for managing todos.
//
// Errors are one of *domain.ValidationError (input rejected before any
// data access), *domain.NotFoundError, or an error wrapping
// domain.ErrStorage.
type TodoService interface {
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error)
	GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error)
	// ListTodos returns one page of todos ordered newest first.
	ListTodos(ctx context.Context, q ListTodosQuery) (*TodoListResponse, error)
	UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error)
	// ToggleTodo flips the completed flag.
	ToggleTodo(ctx context.Context, id uint) (*TodoResponse, error)
	DeleteTodo(ctx context.Context, id uint) error
	GetStats(ctx context.Context) (*StatsResponse, error)
}

type todoService struct {
	repo repository.TodoRepository
	tx   Transactor
}

// NewTodoService wires the service to its repository. Mutations run on
// repositories bound to transactions opened through tx.
func NewTodoService(repo repository.TodoRepository, tx Transactor) TodoService {
	return &todoService{
		repo: repo,
		tx:   tx,
	}
}

// inTx hands fn a repository scoped to one transaction.
func (s *todoService) inTx(ctx context.Context, fn func(repo repository.TodoRepository) error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx))
	})
}

// failure passes domain outcomes through and wraps everything else as a
// storage error.
func failure(op string, id uint, err error) error {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if id != 0 {
		log.Printf("Error during %s of todo %d: %v", op, id, err)
	} else {
		log.Printf("Error during %s: %v", op, err)
	}
	return fmt.Errorf("%s failed: %w: %w", op, domain.ErrStorage, err)
}

func (s *todoService) CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}

	todo := &domain.Todo{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}

	err := s.inTx(ctx, func(repo repository.TodoRepository) error {
		return repo.Create(ctx, todo)
	})
	if err != nil {
		return nil, failure("create", 0, err)
	}

	resp := toTodoResponse(todo)
	return &resp, nil
}

func (s *todoService) GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error) {
	if id == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}

	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, failure("lookup", id, err)
	}

	resp := toTodoResponse(todo)
	return &resp, nil
}

func (s *todoService) ListTodos(ctx context.Context, q ListTodosQuery) (*TodoListResponse, error) {
	q, err := validateListQuery(q)
	if err != nil {
		return nil, err
	}

	todos, total, err := s.repo.List(ctx, repository.ListFilter{
		Completed: q.Completed,
		Search:    q.Search,
		Page:      q.Page,
		PerPage:   q.PerPage,
	})
	if err != nil {
		return nil, failure("list", 0, err)
	}

	responses := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		responses = append(responses, toTodoResponse(&todos[i]))
	}

	return &TodoListResponse{
		Todos:   responses,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	}, nil
}

func (s *todoService) UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error) {
	fields, err := validateUpdate(req)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}

	var updated *domain.Todo
	err = s.inTx(ctx, func(repo repository.TodoRepository) error {
		var err error
		updated, err = repo.Update(ctx, id, fields)
		return err
	})
	if err != nil {
		return nil, failure("update", id, err)
	}

	resp := toTodoResponse(updated)
	return &resp, nil
}

func (s *todoService) ToggleTodo(ctx context.Context, id uint) (*TodoResponse, error) {
	if id == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}

	var toggled *domain.Todo
	err := s.inTx(ctx, func(repo repository.TodoRepository) error {
		var err error
		toggled, err = repo.Toggle(ctx, id)
		return err
	})
	if err != nil {
		return nil, failure("toggle", id, err)
	}

	resp := toTodoResponse(toggled)
	return &resp, nil
}

func (s *todoService) DeleteTodo(ctx context.Context, id uint) error {
	if id == 0 {
		return &domain.NotFoundError{ID: id}
	}

	err := s.inTx(ctx, func(repo repository.TodoRepository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return failure("delete", id, err)
	}
	return nil
}

// GetStats summarizes completion. CompletionRate is a percentage rounded
// to two decimals and is 0 for an empty table.
func (s *todoService) GetStats(ctx context.Context) (*StatsResponse, error) {
	total, completed, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, failure("stats", 0, err)
	}

	return &StatsResponse{
		TotalTodos:     total,
		CompletedTodos: completed,
		PendingTodos:   total - completed,
		CompletionRate: completionRate(completed, total),
	}, nil
}

func completionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}
