package model

import (
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/zeroshot-api/internal/config"
)

// Server owns the ONNX Runtime environment and the models loaded into it.
// Text is nil when the text classifier runs on a remote backend.
type Server struct {
	Text  *ZeroShotClassifier
	Image *ClipScorer
}

// NewServer initializes ONNX Runtime and loads every model cfg asks for,
// opening tokenizers with loadTokenizer. Models are loaded once and are
// read-only afterwards.
func NewServer(cfg *config.Config, loadTokenizer TokenizerLoader) (*Server, error) {
	if cfg.Runtime.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.Runtime.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	s := &Server{}

	if cfg.Text.Backend == config.BackendONNX {
		tk, err := loadTokenizer(cfg.Text.TokenizerPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		text, err := NewZeroShotClassifier(&cfg.Text, &cfg.Runtime, tk)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load zero-shot model: %w", err)
		}
		s.Text = text
	}

	tk, err := loadTokenizer(cfg.Image.TokenizerPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	image, err := NewClipScorer(&cfg.Image, &cfg.Runtime, tk)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load CLIP model: %w", err)
	}
	s.Image = image

	return s, nil
}

// Close releases sessions, tokenizers and the runtime environment.
func (s *Server) Close() error {
	var errs []error
	if s.Text != nil {
		errs = append(errs, s.Text.Close())
	}
	if s.Image != nil {
		errs = append(errs, s.Image.Close())
	}
	errs = append(errs, ort.DestroyEnvironment())
	return errors.Join(errs...)
}

func newSession(modelPath string, inputs, outputs []string, rt *config.RuntimeConfig) (*ort.DynamicAdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if rt.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(rt.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputs, outputs, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}
	return session, nil
}

// runSession wraps each input in a tensor, runs the session and returns a
// copy of the single float32 output of the given shape.
func runSession(session *ort.DynamicAdvancedSession, inputs []ort.Value, outputShape ort.Shape) ([]float32, error) {
	defer func() {
		for _, in := range inputs {
			in.Destroy()
		}
	}()

	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := output.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func int64Tensor(rows, cols int, data []int64) (*ort.Tensor[int64], error) {
	t, err := ort.NewTensor(ort.NewShape(int64(rows), int64(cols)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	return t, nil
}
