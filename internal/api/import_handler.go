package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImportHandler handles the submission and status endpoints.
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /imports?mode={insert_only|upsert}.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	userID := currentUserID(c)
	idempotencyKey := c.GetHeader("Idempotency-Key")

	modeParam := c.Query("mode")
	mode, ok := models.ParseImportMode(modeParam)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("mode must be %q or %q", models.ModeInsertOnly, models.ModeUpsert)})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a multipart file field named \"file\" is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d bytes", h.cfg.Import.MaxUploadSize),
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.Import.MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}
	if int64(len(data)) > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	job, replayed, err := h.services.Submission.Submit(c.Request.Context(), service.SubmitRequest{
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		Mode:           mode,
		FileBytes:      data,
		Filename:       header.Filename,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, job.ToDict())
}

// GetImport handles GET /imports/{id}.
func (h *ImportHandler) GetImport(c *gin.Context) {
	userID := currentUserID(c)
	jobID := c.Param("id")

	job, err := h.services.Submission.GetJob(c.Request.Context(), userID, jobID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, job.ToDict())
}

// GetImportErrors handles GET /imports/{id}/errors.
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	userID := currentUserID(c)
	jobID := c.Param("id")

	url, err := h.services.Submission.GetErrorReportURL(c.Request.Context(), userID, jobID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

