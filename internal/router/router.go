// Package router is a thin layer over http.ServeMux that adds middleware
// chains, route groups and path prefixes.
package router

import (
	"net/http"
	"slices"
	"strings"
)

// Router wraps http.ServeMux with middleware chaining
type Router struct {
	mux    *http.ServeMux
	prefix string
	chain  []Middleware
}

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// New creates a new Router with optional global middleware
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:   http.NewServeMux(),
		chain: middleware,
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

// Put registers a PUT route
func (r *Router) Put(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPut, pattern, handler, middleware...)
}

// Patch registers a PATCH route
func (r *Router) Patch(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPatch, pattern, handler, middleware...)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, handler, middleware...)
}

// Handle registers a route with explicit method. The router's prefix is
// prepended to pattern.
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	r.mux.Handle(method+" "+r.prefix+pattern, r.wrap(handler, middleware))
}

// Mount registers handler for every method under pattern, for handlers
// such as /metrics that do their own method handling.
func (r *Router) Mount(pattern string, handler http.Handler, middleware ...Middleware) {
	r.mux.Handle(r.prefix+pattern, r.wrap(handler, middleware))
}

// wrap applies the router chain then route middleware, outermost first.
func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	combined := append(slices.Clone(r.chain), middleware...)
	for _, m := range slices.Backward(combined) {
		handler = m(handler)
	}
	return handler
}

// Group creates a sub-router with additional middleware
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		prefix: r.prefix,
		chain:  append(slices.Clone(r.chain), middleware...),
	}
}

// Route creates a sub-router whose patterns are relative to prefix.
func (r *Router) Route(prefix string, middleware ...Middleware) *Router {
	g := r.Group(middleware...)
	g.prefix = r.prefix + strings.TrimSuffix(prefix, "/")
	return g
}

// Static serves files from dir under prefix.
func (r *Router) Static(prefix, dir string) {
	clean := r.prefix + strings.TrimSuffix(prefix, "/")
	handler := http.StripPrefix(clean, http.FileServer(http.Dir(dir)))
	r.mux.Handle("GET "+clean+"/{file...}", r.wrap(handler, nil))
}
