package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/stellar/go-stellar-sdk/support/http/mutil"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar-anchor-service/anchor/internal/anchor"
	"github.com/stellar-anchor-service/anchor/internal/monitor"
	"github.com/stellar-anchor-service/anchor/internal/serve/httperror"
	"github.com/stellar-anchor-service/anchor/internal/utils"
)

// requestIDContextKey is the context key RequestIDMiddleware stores the
// generated correlation id under.
type requestIDContextKey struct{}

var requestIDKey = requestIDContextKey{}

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns each request a random correlation id, echoed
// back via the X-Request-Id header and threaded through structured logs.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		reqID := req.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		rw.Header().Set(requestIDHeader, reqID)

		ctx := context.WithValue(req.Context(), requestIDKey, reqID)
		next.ServeHTTP(rw, req.WithContext(ctx))
	})
}

// RequestIDFromContext returns the correlation id set by RequestIDMiddleware,
// if any.
func RequestIDFromContext(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey).(string)
	return reqID
}

// subjectContextKey is the context key under which BearerAuthMiddleware
// stores the authenticated account address (§4.2.2 "ambient authenticated
// subject").
type subjectContextKey struct{}

var subjectKey = subjectContextKey{}

// SubjectFromContext returns the authenticated account address populated by
// BearerAuthMiddleware, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}

// BearerAuthMiddleware implements §4.2.2: it extracts the
// "Authorization: Bearer <token>" header, verifies it against jwtManager,
// and exposes the authenticated subject (account address) to downstream
// handlers. Endpoints not covered by the auth gate (the two /info reads and
// the /interactive redirect) must not be wrapped with this middleware.
func BearerAuthMiddleware(jwtManager *anchor.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			authHeader := req.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				httperror.Unauthorized("missing or malformed bearer token", nil, nil).Render(rw)
				return
			}

			claims, err := jwtManager.Verify(parts[1])
			if err != nil {
				httperror.Unauthorized("invalid or expired bearer token", err, nil).Render(rw)
				return
			}

			ctx := context.WithValue(req.Context(), subjectKey, claims.Subject)
			ctx = log.Set(ctx, log.Ctx(ctx).WithField("account", claims.Subject))
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithStack(err).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler is a middleware that monitors http requests, and export the data
// to the metrics server
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := middleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HTTPRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			err := monitorService.MonitorHTTPRequestDuration(duration, labels)
			if err != nil {
				log.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

// CorsMiddleware allows the discovery document and API endpoints to be
// fetched from the configured corsAllowedOrigins ("*" admits any origin), matching SEP-1/SEP-24's requirement that wallet
// clients running in a browser can read the response.
func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		c := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		})

		return c.Handler(next)
	}
}

// LoggingMiddleware is a middleware that logs requests to the logger.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := mutil.WrapWriter(rw)

		reqCtx := req.Context()
		logFields := log.F{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    RequestIDFromContext(reqCtx),
		}
		logCtx := log.Set(reqCtx, log.Ctx(reqCtx).WithFields(logFields))
		req = req.WithContext(logCtx)

		logRequestStart(req)
		started := time.Now()

		next.ServeHTTP(mw, req)
		ended := time.Since(started)
		logRequestEnd(req, mw, ended)
	})
}

func logRequestStart(req *http.Request) {
	l := log.Ctx(req.Context()).WithFields(
		log.F{
			"subsys":    "http",
			"ip":        req.RemoteAddr,
			"host":      req.Host,
			"useragent": req.Header.Get("User-Agent"),
		},
	)

	l.Info("starting request")
}

func logRequestEnd(req *http.Request, mw mutil.WriterProxy, duration time.Duration) {
	l := log.Ctx(req.Context()).WithFields(log.F{
		"subsys":   "http",
		"status":   mw.Status(),
		"bytes":    mw.BytesWritten(),
		"duration": duration,
	})
	if routeContext := chi.RouteContext(req.Context()); routeContext != nil {
		l = l.WithField("route", routeContext.RoutePattern())
	}

	l.Info("finished request")
}
