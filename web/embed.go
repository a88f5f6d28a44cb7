// Package web carries the embedded UI assets so the server ships as a
// single binary.
package web

import "embed"

// TemplatesFS holds the server-rendered HTML templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and client script served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
