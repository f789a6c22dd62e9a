package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/Brownie44l1/zeroshot-api/internal/imaging"
)

// ScoreDecimals is the precision of the reported image score.
const ScoreDecimals = 4

var (
	// ErrNoCandidateLabels is returned by backends asked to score no labels.
	ErrNoCandidateLabels = errors.New("no candidate labels")
	ErrEmptyResult       = errors.New("classifier returned no labels")
	ErrLogitCount        = errors.New("logit count does not match label count")
)

// ZeroShotOutput is the native result of a zero-shot text backend. Labels
// are sorted by descending score and Scores is parallel to Labels. Raw is
// the backend's own result structure and is passed to callers untouched.
type ZeroShotOutput struct {
	Labels []string
	Scores []float64
	Raw    any
}

// TextClassifier is a zero-shot text classification capability.
type TextClassifier interface {
	ZeroShot(ctx context.Context, text string, labels []string) (*ZeroShotOutput, error)
}

// ImageTextScorer is a joint image/text embedding capability. It returns one
// similarity logit per label, in label order.
type ImageTextScorer interface {
	LogitsPerImage(ctx context.Context, img image.Image, labels []string) ([]float32, error)
}

// TextResult is the response of the text classification endpoint.
type TextResult struct {
	Label  string    `json:"label"`
	Scores []float64 `json:"scores"`
	All    any       `json:"all"`
}

// ImageResult is the response of the image classification endpoint. All
// keeps candidate order and unrounded probabilities.
type ImageResult struct {
	Label string       `json:"label"`
	Score float64      `json:"score"`
	All   []LabelScore `json:"all"`
}

// Classifier shapes requests for the two model capabilities. It holds no
// per-request state and is safe for concurrent use as long as the
// capabilities are.
type Classifier struct {
	text  TextClassifier
	image ImageTextScorer
}

func NewClassifier(text TextClassifier, image ImageTextScorer) *Classifier {
	return &Classifier{text: text, image: image}
}

// ClassifyText passes text and labels to the zero-shot backend unchanged and
// reports its top label. An empty label list is left for the backend to
// refuse.
func (c *Classifier) ClassifyText(ctx context.Context, text string, labels []string) (*TextResult, error) {
	out, err := c.text.ZeroShot(ctx, text, labels)
	if err != nil {
		return nil, fmt.Errorf("zero-shot classification failed: %w", err)
	}
	if len(out.Labels) == 0 {
		return nil, ErrEmptyResult
	}

	return &TextResult{
		Label:  out.Labels[0],
		Scores: out.Scores,
		All:    out.Raw,
	}, nil
}

// ClassifyImage decodes data, scores it against the comma separated labels
// and returns a softmax distribution over them.
func (c *Classifier) ClassifyImage(ctx context.Context, data []byte, candidateLabels string) (*ImageResult, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	labels := SplitLabels(candidateLabels)

	logits, err := c.image.LogitsPerImage(ctx, img, labels)
	if err != nil {
		return nil, fmt.Errorf("image scoring failed: %w", err)
	}
	if len(logits) != len(labels) {
		return nil, fmt.Errorf("%w: got %d logits for %d labels", ErrLogitCount, len(logits), len(labels))
	}

	probs := Softmax(logits)
	best := Argmax(probs)

	all := make([]LabelScore, len(labels))
	for i, label := range labels {
		all[i] = LabelScore{Label: label, Score: probs[i]}
	}

	return &ImageResult{
		Label: labels[best],
		Score: Round(probs[best], ScoreDecimals),
		All:   all,
	}, nil
}

// SplitLabels splits a comma separated label list and trims each entry.
// Empty entries are kept.
func SplitLabels(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
