package ssr

import (
	"context"
	"fmt"
	"html"
)

// ShellRender is the RenderFunc used when no application renderer is
// plugged in: it emits an empty mount point annotated with the route so the
// client bundle hydrates from scratch.
func ShellRender(_ context.Context, path string) (string, error) {
	return fmt.Sprintf(`<div data-route="%s"></div>`, html.EscapeString(path)), nil
}
