package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Tomlord1122/todo-service/internal/database"
	"github.com/Tomlord1122/todo-service/internal/service"
)

type Server struct {
	port        int
	todoService service.TodoService
	db          database.Service
}

func NewServer(port int, todoService service.TodoService, dbService database.Service) *http.Server {
	appServer := &Server{
		port:        port,
		todoService: todoService,
		db:          dbService,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
