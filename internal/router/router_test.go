package router

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Brownie44l1/zeroshot-api/internal/handlers"
	"github.com/Brownie44l1/zeroshot-api/internal/middleware"
	"github.com/Brownie44l1/zeroshot-api/internal/service"
)

type fixedText struct{}

func (fixedText) ZeroShot(_ context.Context, text string, labels []string) (*service.ZeroShotOutput, error) {
	return &service.ZeroShotOutput{
		Labels: labels,
		Scores: []float64{1},
		Raw:    map[string]any{"sequence": text, "labels": labels, "scores": []float64{1}},
	}, nil
}

type fixedScorer struct{}

func (fixedScorer) LogitsPerImage(_ context.Context, _ image.Image, labels []string) ([]float32, error) {
	logits := make([]float32, len(labels))
	for i := range logits {
		logits[i] = float32(i)
	}
	return logits, nil
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	classifier := service.NewClassifier(fixedText{}, fixedScorer{})
	h := handlers.NewHandler(classifier, zap.NewNop(), map[string]string{"text": "onnx", "image": "clip"}, 1<<20)
	return Setup(h, zap.NewNop(), 1<<20)
}

func TestSetup_Routes(t *testing.T) {
	router := setup(t)

	t.Run("health", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("classify text", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/classify-text", bytes.NewBufferString(`{"text":"hi","candidate_labels":["greeting"]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"label":"greeting","scores":[1],"all":{"sequence":"hi","labels":["greeting"],"scores":[1]}}`, w.Body.String())
	})

	t.Run("classify image", func(t *testing.T) {
		var img bytes.Buffer
		src := image.NewRGBA(image.Rect(0, 0, 4, 4))
		src.Set(1, 1, color.RGBA{R: 255, A: 255})
		require.NoError(t, png.Encode(&img, src))

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "x.png")
		require.NoError(t, err)
		_, err = part.Write(img.Bytes())
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("candidate_labels", "a, b"))
		require.NoError(t, mw.Close())

		req, _ := http.NewRequest("POST", "/classify-image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"label":"b"`)
		assert.Contains(t, w.Body.String(), `"score":0.7311`)
	})

	t.Run("undecodable image is a server failure", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "x.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("this is not an image"))
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("candidate_labels", "a"))
		require.NoError(t, mw.Close())

		req, _ := http.NewRequest("POST", "/classify-image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), handlers.CodeInternalError)
	})

	t.Run("unknown route", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/classify-text", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
