package middleware

import (
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

// CORSHandler builds the CORS policy for the API. exposed lists extra response
// headers browsers may read, such as the translation stream metadata.
func CORSHandler(allowedOrigins []string, exposed ...string) cors.Options {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Credentials are never allowed together with a wildcard origin.
	wildcard := slices.Contains(origins, "*")

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   append([]string{RequestIDHeader, "Retry-After"}, exposed...),
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}
