// Package server provides the HTTP routing and OAuth callback handling used by `spotility auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [LoggingMiddleware] reports each request to a charmbracelet logger.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code through an [Exchanger],
// and sends the result through a channel. It only processes one callback.
//
// # Lifecycle
//
// [Listen] binds the address synchronously, so a port conflict is reported before the browser is opened,
// then serves in the background until the caller shuts the server down.
package server
