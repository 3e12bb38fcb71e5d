package main

import (
	"net/http"

	_ "github.com/jeamon/demo-books/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes injects book and ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = wrapHandle(m.public(api.NotFound))
	router.MethodNotAllowed = wrapHandle(m.public(api.MethodNotAllowed))
	api.SetupBookRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.WrapHandler)))
	return router
}

// wrapHandle turns an httprouter.Handle into a standard http.Handler.
func wrapHandle(h httprouter.Handle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, nil)
	})
}
