package main

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// OpsHandlerWrapper converts a standard http.Handler into an httprouter.Handle.
func (api *APIHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

// NotFound replies to unknown routes with a json body.
func (api *APIHandler) NotFound(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api.sendError(w, r, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// MethodNotAllowed replies to known routes called with an unsupported method.
func (api *APIHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api.sendError(w, r, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

// Maintenance handles request to enable or disable the maintenance mode of the service. While enabled
// the public endpoints respond with the predefined message. Without status it shows the current mode.
// Enable the maintenance mode : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
// Disable the maintenance mode: /ops/maintenance?status=disable
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.GetLoggerFromContext(r.Context())
	var response map[string]interface{}

	q := r.URL.Query()
	mstatus := q.Get("status")
	switch mstatus {
	case "enable":
		api.mode.mu.Lock()
		api.mode.message = q.Get("msg")
		api.mode.started = api.clock.Now()
		api.mode.enabled.Store(true)
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.started": api.mode.started.Format(time.RFC1123),
			"maintenance.message": api.mode.message,
			"message":             "Maintenance mode enabled successfully.",
		}
		api.mode.mu.Unlock()

	case "disable":
		api.mode.mu.Lock()
		api.mode.enabled.Store(false)
		api.mode.started = time.Time{}
		api.mode.message = ""
		api.mode.mu.Unlock()
		response = map[string]interface{}{
			"requestid": requestID,
			"message":   "Maintenance mode disabled successfully.",
		}

	case "":
		api.mode.mu.RLock()
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.enabled": api.mode.enabled.Load(),
			"maintenance.message": api.mode.message,
		}
		api.mode.mu.RUnlock()

	default:
		api.sendError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown maintenance status %q", mstatus))
		return
	}

	logger.Info("maintenance mode handled", zap.String("request.maintenance", mstatus))
	if err := WriteResponse(r.Context(), w, http.StatusOK, response); err != nil {
		logger.Error("failed to send maintenance response", zap.String("request.maintenance", mstatus), zap.Error(err))
	}
}

// export goroutines to be used by expvar handler.
var goroutines = expvar.NewInt("goroutines")

// GetMemStats returns memory statistics with number of goroutines in json.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// RunGC forces the run of the garbage collector asynchronously.
func (api *APIHandler) RunGC(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	go runtime.GC()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]string{
			"called": "go runtime.GC()",
		},
	); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send run gc response", zap.Error(err))
	}
}

// FreeOSMemory forces the garbage collector to and tries to returns the memory
// back to the operating system in an asynchronous fashion.
func (api *APIHandler) FreeOSMemory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	go debug.FreeOSMemory()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]string{
			"called": "go debug.FreeOSMemory()",
		},
	); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send free os memory response", zap.Error(err))
	}
}

// GetStatistics provides useful details about the application to the internal ops users.
// The stats returns by this handler do not contain the ops request which triggered that.
// That is why we remove 1 from the called field value in order to match the status stats.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	api.mode.mu.RLock()
	maintenance := map[string]interface{}{
		"enabled": api.mode.enabled.Load(),
		"started": "",
		"message": api.mode.message,
	}
	if !api.mode.started.IsZero() {
		maintenance["started"] = api.mode.started.Format(time.RFC1123)
	}
	api.mode.mu.RUnlock()

	api.stats.mu.RLock()
	status := make(map[int]uint64, len(api.stats.status))
	for code, count := range api.stats.status {
		status[code] = count
	}
	api.stats.mu.RUnlock()

	called := atomic.LoadUint64(&api.stats.called)
	if called > 0 {
		called--
	}
	err := WriteResponse(r.Context(), w, http.StatusOK,
		map[string]interface{}{
			"requestid":     requestID,
			"app.version":   api.stats.version,
			"app.container": api.stats.container,
			"app.platform":  api.stats.platform,
			"go.version":    api.stats.runtime,
			"called":        called,
			"started":       api.stats.started.Format(time.RFC1123),
			"uptime":        fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"maintenance":   maintenance,
			"status":        status,
		},
	)
	if err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send statistics response", zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations/settings.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := WriteResponse(r.Context(), w, http.StatusOK, map[string]interface{}{"configs": api.config}); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send settings response", zap.Error(err))
	}
}

// GetMirrorStats serves the books currently replicated into the mirror.
func (api *APIHandler) GetMirrorStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	if api.mirror == nil {
		api.sendError(w, r, http.StatusNotFound, "mirror is not enabled")
		return
	}

	books, err := api.mirror.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to read mirror", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	err = WriteResponse(r.Context(), w, http.StatusOK,
		map[string]interface{}{
			"requestid":   GetValueFromContext(r.Context(), RequestIDContextKey),
			"books.total": len(books),
			"books":       books,
		},
	)
	if err != nil {
		logger.Error("failed to send mirror response", zap.Error(err))
	}
}

func (api *APIHandler) GetProfilerIndexPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Index(w, r)
}

func (api *APIHandler) GetCPUProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Profile(w, r)
}

func (api *APIHandler) GetTraceProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Trace(w, r)
}

func (api *APIHandler) GetSymbol(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Symbol(w, r)
}

func (api *APIHandler) GetCmdLine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Cmdline(w, r)
}
