// Package web embeds the page templates and static assets served by MoodTune.
package web

import "embed"

// TemplatesFS holds layouts, partials and pages.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and browser script.
//
//go:embed all:static
var StaticFS embed.FS
