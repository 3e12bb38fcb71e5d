package main

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewaresStacks builds the public-facing and the ops middlewares stacks.
// Ops endpoints must stay reachable during maintenance and do not need cors.
func (api *APIHandler) MiddlewaresStacks() (*Middlewares, *Middlewares) {
	public := &Middlewares{
		api.RequestIDMiddleware,
		api.RequestsCounterMiddleware,
		api.StatsMiddleware,
		api.PanicRecoveryMiddleware,
		CORSMiddleware,
		api.CoreMiddleware,
		api.MaintenanceModeMiddleware,
	}
	ops := &Middlewares{
		api.RequestIDMiddleware,
		api.RequestsCounterMiddleware,
		api.StatsMiddleware,
		api.PanicRecoveryMiddleware,
		api.CoreMiddleware,
	}
	return public, ops
}

// CoreMiddleware builds the request scoped logger, stores it into the request
// context then logs the request details before and after its processing.
func (api *APIHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := api.clock.Now()
		logger := api.logger.With(
			zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
			zap.Uint64("request.number", GetRequestNumberFromContext(r.Context())),
		)

		logger.Info(
			"request",
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		r = r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger))
		next(w, r, ps)

		fields := []zap.Field{
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Duration("request.duration", api.clock.Now().Sub(start)),
		}
		if cw, ok := w.(*CustomResponseWriter); ok {
			fields = append(fields, zap.Int("response.status", cw.Status()), zap.Int("response.bytes", cw.Bytes()))
		}
		logger.Info("response", fields...)
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.number` field.
func (api *APIHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, atomic.AddUint64(&api.stats.called, 1))
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// RequestIDMiddleware keeps the caller's request id when it is a valid one,
// otherwise it generates a new id. The id is added to the request context
// and echoed back into the response headers.
func (api *APIHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := r.Header.Get(RequestIDHeader)
		if !api.idsHandler.IsValid(requestID, RequestIDPrefix) {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		r = r.WithContext(ctx)
		next(w, r, ps)
	}
}

// StatsMiddleware records the status code of each response.
func (api *APIHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewCustomResponseWriter(w)
		next(cw, r, ps)
		api.stats.mu.Lock()
		api.stats.status[cw.Status()]++
		api.stats.mu.Unlock()
	}
}

// CORSMiddleware intercepts each incoming HTTP calls then apply cors headers on it.
func CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers, Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, User-Agent, Accept-Language, Referer, DNT, Connection, Pragma, Cache-Control, TE")
		w.Header().Set("Access-Control-Expose-Headers", "Location, X-Request-ID")
		next(w, r, ps)
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (api *APIHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
				api.logger.Error("panic occurred", zap.String("request.id", requestID), zap.Any("error", err), zap.Stack("stack"))
				errResp := NewErrorDetail(http.StatusText(http.StatusInternalServerError))
				if err := WriteErrorResponse(r.Context(), w, http.StatusInternalServerError, errResp); err != nil {
					api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
				}
			}
		}()
		next(w, r, ps)
	}
}

// MaintenanceModeMiddleware answers with 503 while the maintenance mode is on.
func (api *APIHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !api.mode.enabled.Load() {
			next(w, r, ps)
			return
		}

		api.mode.mu.RLock()
		resp := map[string]interface{}{
			"detail": "service currently unavailable.",
			"reason": api.mode.message,
			"since":  api.mode.started.Format(time.RFC1123),
		}
		api.mode.mu.RUnlock()
		if err := WriteResponse(r.Context(), w, http.StatusServiceUnavailable, resp); err != nil {
			api.GetLoggerFromContext(r.Context()).Error("failed to send maintenance response", zap.Error(err))
		}
	}
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(*m) == 0 {
		return h
	}
	lg := len(*m)
	handle := (*m)[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = (*m)[i](handle)
	}

	return handle
}
