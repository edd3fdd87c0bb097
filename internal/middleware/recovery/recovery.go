package recovery

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

// Middleware turns a panic in next into a 500 failure response
func Middleware(logger *log.Logger, onPanic func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				log.FromContext(r.Context(), logger).ErrorContext(r.Context(), "Panic recovered",
					log.FieldError, err,
					log.FieldMethod, r.Method,
					log.FieldPath, r.URL.Path,
					slog.String("stack", string(debug.Stack())),
				)

				if onPanic != nil {
					onPanic(w, r, err)
					return
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(core.Failed(err))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
