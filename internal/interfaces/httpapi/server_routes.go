package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerVideoStatsRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/videos/{videoID}/stats", handler.GetVideoStats)
	mux.HandleFunc("POST /v1/videos/{videoID}/stats", handler.CreateVideoStats)
	mux.HandleFunc("PUT /v1/videos/{videoID}/stats", handler.UpdateVideoStats)
	mux.HandleFunc("DELETE /v1/videos/{videoID}/stats", handler.DeleteVideoStats)
	mux.HandleFunc("POST /v1/videos/{videoID}/stats/manual", handler.StartManualStats)
	mux.HandleFunc("POST /v1/videos/{videoID}/stats/generate", handler.GenerateStats)
	mux.HandleFunc("POST /v1/videos/{videoID}/stats/events", handler.RecordEvents)
	mux.HandleFunc("POST /v1/videos/{videoID}/analyze", handler.AnalyzeVideo)
	mux.HandleFunc("POST /v1/normalize", handler.Normalize)
}

func registerLibraryRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/videos/library", handler.GetVideoLibrary)
	mux.HandleFunc("GET /v1/fields/{fieldID}/videos/stats", handler.ListFieldVideoStats)
}
