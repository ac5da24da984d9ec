package handlers

import (
	"net/http"

	"github.com/applymint/applymint/internal/services"
	"github.com/applymint/applymint/internal/storage"
	"github.com/applymint/applymint/internal/utils"
	"github.com/gin-gonic/gin"
)

// multipart framing on top of the clip itself
const audioFormOverhead = 1 << 20

type AudioHandler struct {
	audio services.AudioService
}

func NewAudioHandler(audio services.AudioService) *AudioHandler {
	return &AudioHandler{audio: audio}
}

// Upload serves POST /sessions/:id/audio (multipart "file").
func (h *AudioHandler) Upload(c *gin.Context) {
	const op = "AudioHandler.Upload"

	caller, found := requireCaller(c)
	if !found {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAudioBytes+audioFormOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file is required (max 10MB)", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable file", err))
		return
	}
	defer f.Close()

	res, err := h.audio.Upload(c.Request.Context(), caller, services.AudioUpload{
		SessionID:   c.Param("id"),
		QuestionID:  c.PostForm("questionId"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Language:    c.PostForm("language"),
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, res)
}
