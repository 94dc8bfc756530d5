// Package web embeds the UI templates and static assets.
package web

import "embed"

// TemplatesFS holds the server-rendered HTML templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds css and other static assets.
//
//go:embed static/*
var StaticFS embed.FS
