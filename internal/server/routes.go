package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/todo-service/internal/domain"
	"github.com/Tomlord1122/todo-service/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)

	r.Get("/health", s.healthHandler)

	r.Route("/todos", func(r chi.Router) {
		r.Post("/", s.createTodoHandler)
		r.Get("/", s.listTodosHandler)
		r.Get("/health", s.healthHandler)
		r.Get("/stats/summary", s.statsHandler)
		r.Get("/{id}", s.getTodoByIDHandler)
		r.Put("/{id}", s.updateTodoHandler)
		r.Delete("/{id}", s.deleteTodoHandler)
		r.Patch("/{id}/toggle", s.toggleTodoHandler)
	})

	return r
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Todo service",
		"status":  "healthy",
		"docs":    "/health",
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health(r.Context())
	if status, ok := healthStats["status"]; ok && status != "healthy" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTodoRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	todoResp, err := s.todoService.CreateTodo(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create todo")
		return
	}

	respondWithJSON(w, http.StatusCreated, todoResp)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.todoService.ListTodos(r.Context(), q)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			respondWithValidationError(w, http.StatusBadRequest, ve)
			return
		}
		respondWithServiceError(w, err, "Failed to fetch todos")
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (s *Server) getTodoByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	todo, err := s.todoService.GetTodoByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req service.UpdateTodoRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	updatedTodo, err := s.todoService.UpdateTodo(r.Context(), id, req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update todo")
		return
	}

	respondWithJSON(w, http.StatusOK, updatedTodo)
}

func (s *Server) toggleTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	todo, err := s.todoService.ToggleTodo(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to toggle todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTodo(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete todo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Todo with id %d deleted successfully", id),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.todoService.GetStats(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to get statistics")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid todo ID provided")
		return 0, false
	}
	return uint(id), true
}

func parseListQuery(r *http.Request) (service.ListTodosQuery, error) {
	values := r.URL.Query()
	q := service.ListTodosQuery{
		Page:    service.DefaultPage,
		PerPage: service.DefaultPerPage,
		Search:  values.Get("search"),
	}

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, errors.New("page must be a positive integer")
		}
		q.Page = page
	}
	if v := values.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > service.MaxPerPage {
			return q, fmt.Errorf("per_page must be an integer between 1 and %d", service.MaxPerPage)
		}
		q.PerPage = perPage
	}
	if v := values.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.New("completed must be true or false")
		}
		q.Completed = &completed
	}
	return q, nil
}

// decodeJSONBody writes a client error and returns false when the body is
// not a single well-formed JSON object of the expected shape.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err == nil && decoder.More() {
		err = errors.New("body must contain a single JSON object")
	}
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	case errors.Is(err, io.ErrUnexpectedEOF):
		respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		// Field is a dotted Go path; embedded structs add their type name.
		field := unmarshalTypeError.Field
		if i := strings.LastIndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		ve := domain.NewValidationError(field, fmt.Sprintf("must be of type %s", unmarshalTypeError.Type))
		respondWithValidationError(w, http.StatusUnprocessableEntity, ve)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Request body contains unknown field %s", fieldName))
	case errors.Is(err, io.EOF):
		respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
	case errors.As(err, &maxBytesError):
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body must not be larger than %d bytes", maxBytesError.Limit))
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
	}
	return false
}

// respondWithServiceError maps service errors to statuses. Storage and
// unexpected failures are logged and reported with the generic message.
func respondWithServiceError(w http.ResponseWriter, err error, generic string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		respondWithValidationError(w, http.StatusUnprocessableEntity, ve)
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("%s: %v", generic, err)
		respondWithError(w, http.StatusInternalServerError, generic)
	}
}

func respondWithValidationError(w http.ResponseWriter, code int, ve *domain.ValidationError) {
	respondWithJSON(w, code, map[string]any{
		"error":   "Validation failed",
		"details": ve.Fields,
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
