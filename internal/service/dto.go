package service

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

// TodoFields is the field set shared by create requests and responses.
// Each shape embeds it explicitly rather than extending another shape.
type TodoFields struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// CreateTodoRequest holds the data needed to create a new todo.
// Completed defaults to false when omitted.
type CreateTodoRequest struct {
	TodoFields
}

// UpdateTodoRequest holds a partial update. Only fields present in the
// request body are applied.
type UpdateTodoRequest struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Completed   Optional[bool]   `json:"completed"`
}

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// TodoResponse is the representation of a stored todo returned to clients.
type TodoResponse struct {
	ID uint `json:"id"`
	TodoFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TodoListResponse is one page of todos. Total counts every match before
// paging.
type TodoListResponse struct {
	Todos   []TodoResponse `json:"todos"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// ListTodosQuery selects a page of todos. Zero Page and PerPage take the
// defaults.
type ListTodosQuery struct {
	Page      int
	PerPage   int
	Completed *bool
	Search    string
}

type StatsResponse struct {
	TotalTodos     int64   `json:"total_todos"`
	CompletedTodos int64   `json:"completed_todos"`
	PendingTodos   int64   `json:"pending_todos"`
	CompletionRate float64 `json:"completion_rate"`
}

func toTodoResponse(todo *domain.Todo) TodoResponse {
	return TodoResponse{
		ID: todo.ID,
		TodoFields: TodoFields{
			Title:       todo.Title,
			Description: todo.Description,
			Completed:   todo.Completed,
		},
		CreatedAt: todo.CreatedAt,
		UpdatedAt: todo.UpdatedAt,
	}
}
