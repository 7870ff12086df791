package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var embeddedStatic embed.FS

// ScriptPath is where the page script is served.
const ScriptPath = "/static/quizspeak.js"

func newStaticHandler() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(sub))
}

// demoPage returns the built-in quiz page served when none is configured.
func demoPage() string {
	data, err := embeddedStatic.ReadFile("static/index.html")
	if err != nil {
		return "<!DOCTYPE html><html><body></body></html>"
	}
	return string(data)
}
