package router

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// Route is one documented endpoint of the admin API
type Route struct {
	Method      string
	Path        string
	Description string
	handlers    []gin.HandlerFunc
}

// String renders the route as "METHOD path  description"
func (r Route) String() string {
	return fmt.Sprintf("%-4s %s  %s", r.Method, r.Path, r.Description)
}

// Resource groups the routes that share a path prefix and middleware,
// e.g. /orders or /base-orders
type Resource struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []Route
}

// NewResource creates a resource mounted at prefix. The middleware runs
// before every route of the resource.
func NewResource(name, prefix string, middleware ...gin.HandlerFunc) *Resource {
	return &Resource{
		name:       name,
		prefix:     prefix,
		middleware: middleware,
	}
}

// GET adds a read route
func (r *Resource) GET(p, description string, handlers ...gin.HandlerFunc) *Resource {
	return r.handle(http.MethodGet, p, description, handlers)
}

// POST adds a write route
func (r *Resource) POST(p, description string, handlers ...gin.HandlerFunc) *Resource {
	return r.handle(http.MethodPost, p, description, handlers)
}

func (r *Resource) handle(method, p, description string, handlers []gin.HandlerFunc) *Resource {
	r.routes = append(r.routes, Route{
		Method:      method,
		Path:        p,
		Description: description,
		handlers:    handlers,
	})
	return r
}

// Name returns the resource name
func (r *Resource) Name() string {
	return r.name
}

// Prefix returns the path prefix of the resource
func (r *Resource) Prefix() string {
	return r.prefix
}

func (r *Resource) mount(rg *gin.RouterGroup) {
	group := rg.Group(r.prefix, r.middleware...)
	for _, route := range r.routes {
		group.Handle(route.Method, route.Path, route.handlers...)
	}
}

// API mounts resources under /api/<version>
type API struct {
	version   string
	resources []*Resource
}

// NewAPI creates an API for the given version, e.g. "v1"
func NewAPI(version string) *API {
	return &API{version: version}
}

// Base returns the versioned path prefix
func (a *API) Base() string {
	return "/api/" + a.version
}

// Mount adds resources; they are registered by Setup
func (a *API) Mount(resources ...*Resource) *API {
	a.resources = append(a.resources, resources...)
	return a
}

// Setup registers every mounted resource on the engine
func (a *API) Setup(engine *gin.Engine) {
	api := engine.Group(a.Base())
	for _, res := range a.resources {
		res.mount(api)
	}
}

// Routes lists the mounted routes with their full paths, in mount order
func (a *API) Routes() []Route {
	var out []Route
	for _, res := range a.resources {
		for _, route := range res.routes {
			full := path.Join(a.Base(), res.prefix, route.Path)
			if strings.HasSuffix(route.Path, "/") && !strings.HasSuffix(full, "/") {
				full += "/"
			}
			out = append(out, Route{Method: route.Method, Path: full, Description: route.Description})
		}
	}
	return out
}

// Describe renders Routes for logging
func (a *API) Describe() []string {
	routes := a.Routes()
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.String())
	}
	return out
}
