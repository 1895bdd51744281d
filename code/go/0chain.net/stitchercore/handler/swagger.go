package handler

import (
	_ "embed"
	"net/http"

	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/mux"
)

//go:embed swagger.yaml
var swaggerSpec []byte

func SetupSwagger(r *mux.Router) {
	r.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(swaggerSpec) //nolint:errcheck
	}).Methods(http.MethodGet)

	// documentation for developers
	opts := middleware.SwaggerUIOpts{SpecURL: "swagger.yaml"}
	sh := middleware.SwaggerUI(opts, nil)
	r.Handle("/docs", sh)

	opts1 := middleware.RedocOpts{SpecURL: "swagger.yaml", Path: "redoc"}
	sh1 := middleware.Redoc(opts1, nil)
	r.Handle("/redoc", sh1)
}
