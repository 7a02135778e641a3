package handlers

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"bugtrack/web"
)

// Renderer подключает html/template к echo
type Renderer struct {
	templates *template.Template
}

// NewRenderer разбирает встроенные шаблоны страниц
func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Render реализует echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
