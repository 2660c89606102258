package server

import (
	"html/template"
	"net/http"

	"github.com/vango-dev/extstore/pkg/reactive"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
.border { border: 1px solid #888; margin: 8px; padding: 8px; }
.content { display: flex; gap: 8px; }
.error { color: #b00; }
</style>
</head>
<body>
<div id="app">{{.Body}}</div>
<script src="/client.js" defer></script>
</body>
</html>
`))

type pageData struct {
	Title string
	Body  template.HTML
}

// handlePage renders a fresh tree to HTML. The tree is discarded; the
// page's WebSocket session mounts its own.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	defer reactive.ReleaseGoroutine()
	root := s.newRoot()
	defer root.Dispose()

	if err := root.Mount(); err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, pageData{
		Title: s.config.Name,
		Body:  template.HTML(root.HTML()),
	})
	if err != nil {
		s.logger.Error("page write failed", "error", err)
	}
}
