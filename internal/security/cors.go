package security

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the portfolio sites permitted to call the API when
// no allow-list is configured.
var DefaultAllowedOrigins = []string{
	"https://my-portfolio-git-main-nitesh-nandans-projects.vercel.app",
	"https://www.niteshnandan.in",
}

// CORS returns middleware allowing browser calls from origins. Only GET, POST
// and OPTIONS with a Content-Type header are permitted and credentials are
// never shared.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
