package mapsurface

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed host.html.tmpl
var hostTemplateText string

var hostTemplate = template.Must(template.New("host").Parse(hostTemplateText))

// HostEndpoints are the push channels the host page connects to.
type HostEndpoints struct {
	WS     string `json:"ws,omitempty"`
	Events string `json:"events,omitempty"`
}

// HostPage parameterizes the rendering host bundle.
type HostPage struct {
	Title     string
	Lang      string
	Init      InitParams
	Endpoints HostEndpoints
}

// RenderHost writes the Leaflet host page. The page draws the initial
// markers once and afterwards only applies pushed updates.
func RenderHost(w io.Writer, page HostPage) error {
	if page.Title == "" {
		page.Title = "Map"
	}
	if page.Lang == "" {
		page.Lang = "vi"
	}
	return hostTemplate.Execute(w, page)
}
