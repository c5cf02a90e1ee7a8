package http

import (
	"github.com/savevault/savevault/internal/service"
)

// Handlers bundles all HTTP handler dependencies.
type Handlers struct {
	Auth  *service.AuthService
	Saves *service.SaveService
}
