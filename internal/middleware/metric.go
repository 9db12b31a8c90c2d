package middleware

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/Alturino/storefront/internal/metrics"
)

func Metrics(service string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}

			m := httpsnoop.CaptureMetrics(next, w, r)

			metrics.RequestsTotal.
				WithLabelValues(service, r.Method, route, strconv.Itoa(m.Code)).
				Inc()
			metrics.RequestDuration.
				WithLabelValues(service, r.Method, route).
				Observe(m.Duration.Seconds())
		})
	}
}
