package auth

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// EditorKey is the context key for the authenticated editor name
	EditorKey contextKey = "editor"
	// ClientIPKey is the context key for the client IP address
	ClientIPKey contextKey = "client_ip"
)

// EditorAuthMiddleware resolves the access key on each request to an editor.
// Requests without a valid key are handed to the reject func.
type EditorAuthMiddleware struct {
	resolver *EditorResolver
	reject   func(w http.ResponseWriter, r *http.Request, ip string)
}

// NewEditorAuthMiddleware creates a new editor authentication middleware
func NewEditorAuthMiddleware(resolver *EditorResolver, reject func(w http.ResponseWriter, r *http.Request, ip string)) *EditorAuthMiddleware {
	return &EditorAuthMiddleware{
		resolver: resolver,
		reject:   reject,
	}
}

// Handler wraps an HTTP handler with editor authentication
func (m *EditorAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always get client IP first so the reject path can show it
		clientIP := m.resolver.GetClientIP(r)

		// Check if the keys file is loaded
		if !m.resolver.IsLoaded() {
			m.reject(w, r, clientIP)
			return
		}

		// Resolve editor from access key
		editor, found := m.resolver.ResolveEditor(r)

		if !found {
			m.reject(w, r, clientIP)
			return
		}

		// Add editor and client IP to request context
		ctx := context.WithValue(r.Context(), EditorKey, editor)
		ctx = context.WithValue(ctx, ClientIPKey, clientIP)

		// Continue to next handler
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetEditorFromContext retrieves the editor name from the request context
func GetEditorFromContext(ctx context.Context) (string, bool) {
	editor, ok := ctx.Value(EditorKey).(string)
	return editor, ok
}

// GetClientIPFromContext retrieves the client IP from the request context
func GetClientIPFromContext(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(ClientIPKey).(string)
	return ip, ok
}
