package output

import (
	"context"
	"os"
)

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// WithRenderer returns a context carrying r.
func WithRenderer(ctx context.Context, r *Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// FromContext retrieves the renderer from the command context.
func FromContext(ctx context.Context) *Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*Renderer); ok {
		return r
	}
	// Return default renderer if none in context
	return NewRenderer(os.Stdout, os.Stderr, ModeAuto, "auto")
}
