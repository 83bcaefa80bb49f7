// Package handlers provides HTTP handlers for the clubsignup server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"net/http"

	"github.com/nomis52/clubsignup/config"
	"github.com/nomis52/clubsignup/page"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// PageProvider resolves the page of the browser session making the request.
type PageProvider interface {
	Page(r *http.Request) (*page.Page, error)
}
