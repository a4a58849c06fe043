package interfaces

import (
	"io"
)

// TemplateRenderer abstracts the template engine used to turn page contexts
// into HTML. The pongo2-backed implementation lives in internal/templates.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
}
