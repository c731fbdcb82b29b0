package httpapi

import "net/http"

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /medias/upload-image", h.UploadImage)
	mux.HandleFunc("POST /medias/upload-images", h.UploadImages)
	mux.HandleFunc("POST /medias/upload-video", h.UploadVideo)
	mux.HandleFunc("POST /medias/upload-video-hls", h.UploadVideoHLS)
	mux.HandleFunc("GET /medias/video-status/{id}", h.GetVideoStatus)

	return mux
}
