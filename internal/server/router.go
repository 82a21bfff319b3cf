package server

import (
	"embed"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

//go:embed templates static
var assetFS embed.FS

// Handler assembles the route table with request-id, access-log and
// CORS middleware applied
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleIndex).Methods("GET")
	router.HandleFunc("/download", s.handleDownload).Methods("POST")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// Embedded paths match URL paths, so no prefix stripping is needed
	router.PathPrefix("/static/").Handler(http.FileServer(http.FS(assetFS))).Methods("GET")

	router.Use(requestIDMiddleware)
	router.Use(accessLogMiddleware(s.logger))

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"X-Build-Id",
			"X-Failed-Ids",
			"X-Request-Id",
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
