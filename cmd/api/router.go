package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/noah-isme/my-mailer/docs"
	"github.com/noah-isme/my-mailer/internal/contact"
	"github.com/noah-isme/my-mailer/internal/health"
	"github.com/noah-isme/my-mailer/internal/obs"
	"github.com/noah-isme/my-mailer/internal/security"
)

const docsPath = "/apidocs/index.html"

type routerConfig struct {
	Logger          zerolog.Logger
	Contact         *contact.Service
	Health          health.Handler
	Metrics         *obs.HTTPMetrics
	MetricsHandler  http.Handler
	Tracing         bool
	CORSOrigins     []string
	BodyLimit       int64
	SecurityHeaders bool
	Pprof           bool
	PprofUser       string
	PprofPass       string
}

func newRouter(cfg routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: true}.Middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, docsPath, http.StatusFound)
	})
	r.Get("/apidocs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, docsPath, http.StatusMovedPermanently)
	})
	r.Get("/apidocs/*", httpSwagger.Handler(httpSwagger.URL("/apidocs/doc.json")))

	r.Route("/api", func(api chi.Router) {
		api.Use(security.CORS(cfg.CORSOrigins))
		api.Use(security.BodyLimit{Max: cfg.BodyLimit}.Middleware)
		cfg.Health.APIRoutes(api)
		(&contact.Handler{Service: cfg.Contact}).Routes(api)
	})
	r.Route("/health", cfg.Health.Routes)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Pprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}
	return r
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	// Index serves the named runtime profiles below the same prefix.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
