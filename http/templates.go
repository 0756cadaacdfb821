package http

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/picshed/picshed"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	LoggedIn bool
	Owner    string
	Entries  []picshed.GalleryEntry
}

func (h *Handler) renderIndex(w http.ResponseWriter, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render gallery page", "error", err)
	}
}
