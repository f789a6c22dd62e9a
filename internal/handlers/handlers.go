package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/zeroshot-api/internal/service"
)

// Classifier is the classification service the handlers delegate to.
type Classifier interface {
	ClassifyText(ctx context.Context, text string, labels []string) (*service.TextResult, error)
	ClassifyImage(ctx context.Context, data []byte, candidateLabels string) (*service.ImageResult, error)
}

// TextClassificationRequest is the body of POST /classify-text. An empty
// candidate_labels list is passed on to the classifier as is.
type TextClassificationRequest struct {
	Text            string   `json:"text" binding:"required"`
	CandidateLabels []string `json:"candidate_labels" binding:"required"`
}

const invalidTextRequestMessage = "request body must be JSON with a non-empty 'text' string and a 'candidate_labels' list"

type Handler struct {
	classifier     Classifier
	logger         *zap.Logger
	models         map[string]string
	maxUploadBytes int64
}

// NewHandler creates the HTTP handlers. models describes the loaded
// backends for the health endpoint.
func NewHandler(classifier Classifier, logger *zap.Logger, models map[string]string, maxUploadBytes int64) *Handler {
	return &Handler{
		classifier:     classifier,
		logger:         logger,
		models:         models,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"models": h.models,
	})
}

// ClassifyText handles POST /classify-text
func (h *Handler) ClassifyText(c *gin.Context) {
	var req TextClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid text classification request",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		HandleInvalidRequest(c, invalidTextRequestMessage)
		return
	}

	result, err := h.classifier.ClassifyText(c.Request.Context(), req.Text, req.CandidateLabels)
	if err != nil {
		h.handleClassifyError(c, "text classification failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ClassifyImage handles POST /classify-image
func (h *Handler) ClassifyImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "upload exceeds size limit")
			return
		}
		HandleInvalidRequest(c, "missing image file (form field 'file')")
		return
	}

	labels, ok := c.GetPostForm("candidate_labels")
	if !ok {
		HandleInvalidRequest(c, "missing form field 'candidate_labels'")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		HandleInvalidRequest(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		HandleInvalidRequest(c, "failed to read uploaded file")
		return
	}

	h.logger.Debug("received image",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("filename", fileHeader.Filename),
		zap.Int64("size", fileHeader.Size),
	)

	result, err := h.classifier.ClassifyImage(c.Request.Context(), data, labels)
	if err != nil {
		h.handleClassifyError(c, "image classification failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) handleClassifyError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	errResp := MapServiceError(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
	respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
}
