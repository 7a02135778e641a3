// Package web содержит встраиваемые HTML-шаблоны страниц приложения.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
