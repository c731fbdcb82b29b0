package httpapi

import "github.com/romariotrain/hls-pipeline/internal/media/models"

type UploadResponse struct {
	Message string          `json:"message"`
	Result  []*models.Media `json:"result"`
}

type VideoStatusResponse struct {
	Message string              `json:"message"`
	Result  *models.VideoStatus `json:"result"`
}

const (
	msgUploadSuccess         = "Upload success"
	msgGetVideoStatusSuccess = "Get video status success"
)
