package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/response"
	"github.com/grahaedukasi/graha-cbt/internal/service"
)

// MediaHandler serves question image uploads.
type MediaHandler struct {
	mediaService *service.MediaService
	log          zerolog.Logger
}

func NewMediaHandler(mediaService *service.MediaService, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		log:          log.With().Str("component", "media_handler").Logger(),
	}
}

// UploadImage godoc
// POST /api/v1/admin/media/image  (multipart "file")
// Returns the image as a data URL ready for a question's imageUrl. JPEG, PNG
// and WebP may be up to 512 KB, GIF up to 256 KB.
func (h *MediaHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	img, err := h.mediaService.Encode(file)
	if err != nil {
		h.log.Debug().Err(err).Str("filename", header.Filename).Msg("Image rejected")
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, img)
}
