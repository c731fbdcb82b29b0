package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/hls-pipeline/internal/media/models"
)

// MediaService is what the handlers need from service.Service.
type MediaService interface {
	UploadVideoHLS(ctx context.Context, sourcePath string) (*models.Media, error)
	UploadVideo(ctx context.Context, sourcePath string) (*models.Media, error)
	UploadImage(ctx context.Context, sourcePath string) (*models.Media, error)
	UploadImages(ctx context.Context, sourcePaths []string) ([]*models.Media, error)
	GetVideoStatus(ctx context.Context, id string) (*models.VideoStatus, error)
}

const (
	multipartMemory = 8 << 20
	// MaxImagesPerUpload bounds POST /medias/upload-images.
	MaxImagesPerUpload = 4
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".m4v":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".ts":   true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

type Handler struct {
	svc       MediaService
	uploadDir string
	maxBytes  int64
	logger    zerolog.Logger
	newID     func() string
}

type Options struct {
	UploadDir string
	MaxBytes  int64
	Logger    zerolog.Logger
}

func New(svc MediaService, opts Options) *Handler {
	return &Handler{
		svc:       svc,
		uploadDir: opts.UploadDir,
		maxBytes:  opts.MaxBytes,
		logger:    opts.Logger.With().Str("component", "httpapi").Logger(),
		newID:     func() string { return uuid.NewString() },
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadVideoHLS stores the multipart "video" field under the upload dir with
// a fresh uuid name and hands it to the transcoding queue.
func (h *Handler) UploadVideoHLS(w http.ResponseWriter, r *http.Request) {
	h.uploadOne(w, r, "video", isVideo, h.svc.UploadVideoHLS)
}

// UploadVideo publishes the "video" field without transcoding.
func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	h.uploadOne(w, r, "video", isVideo, h.svc.UploadVideo)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.uploadOne(w, r, "image", isImage, h.svc.UploadImage)
}

func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	paths, ok := h.receive(w, r, "image", isImage, MaxImagesPerUpload)
	if !ok {
		return
	}

	media, err := h.svc.UploadImages(r.Context(), paths)
	if err != nil {
		removeAll(paths)
		h.logger.Warn().Err(err).Int("files", len(paths)).Msg("image upload failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message: msgUploadSuccess,
		Result:  media,
	})
}

type uploadFunc func(ctx context.Context, sourcePath string) (*models.Media, error)

func (h *Handler) uploadOne(w http.ResponseWriter, r *http.Request, field string, accept acceptFunc, upload uploadFunc) {
	paths, ok := h.receive(w, r, field, accept, 1)
	if !ok {
		return
	}

	m, err := upload(r.Context(), paths[0])
	if err != nil {
		// The service may not have taken ownership of the file.
		removeAll(paths)
		h.logger.Warn().Err(err).Str("source", paths[0]).Msg("upload rejected")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message: msgUploadSuccess,
		Result:  []*models.Media{m},
	})
}

type acceptFunc func(contentType, ext string) bool

// receive parses the multipart body and stores up to limit files of field
// under fresh uuid names. On failure it writes the error response and
// returns false.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request, field string, accept acceptFunc, limit int) ([]string, bool) {
	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes {
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	defer r.Body.Close()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, false
		}
		writeErrorJSON(w, http.StatusBadRequest, "invalid multipart body")
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		writeErrorJSON(w, http.StatusBadRequest, field+" file is required")
		return nil, false
	}
	if len(headers) > limit {
		writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("at most %d %s files allowed", limit, field))
		return nil, false
	}
	for _, fh := range headers {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !accept(fh.Header.Get("Content-Type"), ext) {
			writeErrorJSON(w, http.StatusBadRequest, "file type is not valid")
			return nil, false
		}
	}

	paths := make([]string, 0, len(headers))
	for _, fh := range headers {
		path, err := h.store(fh)
		if err != nil {
			removeAll(paths)
			h.logger.Error().Err(err).Msg("failed to store upload")
			writeErrorJSON(w, http.StatusInternalServerError, "internal error")
			return nil, false
		}
		paths = append(paths, path)
	}
	return paths, true
}

func (h *Handler) store(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload part: %w", err)
	}
	defer src.Close()

	return h.save(src, strings.ToLower(filepath.Ext(fh.Filename)))
}

func (h *Handler) GetVideoStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorJSON(w, http.StatusBadRequest, "missing id")
		return
	}

	st, err := h.svc.GetVideoStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VideoStatusResponse{
		Message: msgGetVideoStatusSuccess,
		Result:  st,
	})
}

func (h *Handler) save(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(h.uploadDir, h.newID()+ext)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

func isVideo(contentType, ext string) bool {
	return hasMediaType(contentType, "video/") || videoExtensions[ext]
}

func isImage(contentType, ext string) bool {
	return hasMediaType(contentType, "image/") || imageExtensions[ext]
}

func hasMediaType(contentType, prefix string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mt, prefix)
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrInvalidArgument):
		writeErrorJSON(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, models.ErrConflict):
		writeErrorJSON(w, http.StatusConflict, "conflict")
	default:
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
