package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects book related the api endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/status", m.public(api.Status))
	router.GET("/", m.public(api.ListBooks))
	router.POST("/", m.public(api.CreateBook))
	router.PUT("/:id", m.public(api.UpdateBook))
	router.DELETE("/:id", m.public(api.DeleteBook))
	return router
}
