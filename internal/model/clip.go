package model

import (
	"context"
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/zeroshot-api/internal/config"
	"github.com/Brownie44l1/zeroshot-api/internal/imaging"
	"github.com/Brownie44l1/zeroshot-api/internal/service"
)

// ClipScorer computes image/text similarity logits with a CLIP model
// exported to ONNX with input_ids, attention_mask and pixel_values inputs.
type ClipScorer struct {
	session   *ort.DynamicAdvancedSession
	tokenizer Tokenizer
	norm      imaging.Normalization
	cfg       config.ImageConfig
}

// NewClipScorer loads the CLIP model at cfg.ModelPath. It takes ownership of
// tk and closes it on failure.
func NewClipScorer(cfg *config.ImageConfig, rt *config.RuntimeConfig, tk Tokenizer) (*ClipScorer, error) {
	session, err := newSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "pixel_values"},
		[]string{"logits_per_image"}, rt)
	if err != nil {
		_ = tk.Close()
		return nil, err
	}

	var norm imaging.Normalization
	copy(norm.Mean[:], cfg.Mean)
	copy(norm.Std[:], cfg.Std)

	return &ClipScorer{
		session:   session,
		tokenizer: tk,
		norm:      norm,
		cfg:       *cfg,
	}, nil
}

// LogitsPerImage returns the similarity logit of img against each label.
func (s *ClipScorer) LogitsPerImage(_ context.Context, img image.Image, labels []string) ([]float32, error) {
	if len(labels) == 0 {
		return nil, service.ErrNoCandidateLabels
	}

	batch := encodeLabels(s.tokenizer, labels, s.cfg.MaxLength, s.cfg.PadTokenID)
	pixels := imaging.PixelValues(img, s.cfg.ImageSize, s.norm)

	inputs, err := batchTensors(batch)
	if err != nil {
		return nil, err
	}

	size := int64(s.cfg.ImageSize)
	pixelTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), pixels)
	if err != nil {
		for _, in := range inputs {
			in.Destroy()
		}
		return nil, fmt.Errorf("failed to create pixel tensor: %w", err)
	}
	inputs = append(inputs, pixelTensor)

	return runSession(s.session, inputs, ort.NewShape(1, int64(len(labels))))
}

func (s *ClipScorer) Close() error {
	var err error
	if s.session != nil {
		err = s.session.Destroy()
	}
	if s.tokenizer != nil {
		if cerr := s.tokenizer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// encodeLabels tokenizes every label with special tokens, truncates to
// maxLen keeping the end-of-text token, and pads to the longest label.
func encodeLabels(tk Tokenizer, labels []string, maxLen int, padID int64) *tokenBatch {
	seqs := make([][]uint32, len(labels))
	for i, label := range labels {
		ids, _ := tk.Encode(label, true)
		seqs[i] = truncateKeepLast(ids, maxLen)
	}
	return newTokenBatch(seqs, nil, padID)
}
