package model

import (
	"context"
	"sort"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/zeroshot-api/internal/config"
	"github.com/Brownie44l1/zeroshot-api/internal/service"
)

// ZeroShotClassifier runs zero-shot classification on a natural language
// inference model: every candidate label becomes a hypothesis, and the
// entailment logits are normalized across labels.
type ZeroShotClassifier struct {
	session   *ort.DynamicAdvancedSession
	tokenizer Tokenizer
	cfg       config.TextConfig
}

// NewZeroShotClassifier loads the NLI model at cfg.ModelPath. It takes
// ownership of tk and closes it on failure.
func NewZeroShotClassifier(cfg *config.TextConfig, rt *config.RuntimeConfig, tk Tokenizer) (*ZeroShotClassifier, error) {
	inputs := []string{"input_ids", "attention_mask"}
	if cfg.UseTokenTypeIDs {
		inputs = append(inputs, "token_type_ids")
	}

	session, err := newSession(cfg.ModelPath, inputs, []string{"logits"}, rt)
	if err != nil {
		_ = tk.Close()
		return nil, err
	}

	return &ZeroShotClassifier{
		session:   session,
		tokenizer: tk,
		cfg:       *cfg,
	}, nil
}

// ZeroShot scores text against every label in one batch. The result is
// sorted by descending score; Raw mirrors the {sequence, labels, scores}
// shape of a zero-shot pipeline result.
func (c *ZeroShotClassifier) ZeroShot(_ context.Context, text string, labels []string) (*service.ZeroShotOutput, error) {
	if len(labels) == 0 {
		return nil, service.ErrNoCandidateLabels
	}

	batch := encodePairs(c.tokenizer, text, hypotheses(c.cfg.HypothesisTemplate, labels),
		c.cfg.MaxLength, c.cfg.PadTokenID, c.cfg.UseTokenTypeIDs)

	inputs, err := batchTensors(batch)
	if err != nil {
		return nil, err
	}

	logits, err := runSession(c.session, inputs, ort.NewShape(int64(batch.rows), int64(c.cfg.NumClasses)))
	if err != nil {
		return nil, err
	}

	scores := entailmentScores(logits, c.cfg.NumClasses, c.cfg.EntailmentIndex)
	sortedLabels, sortedScores := sortByScore(labels, scores)

	return &service.ZeroShotOutput{
		Labels: sortedLabels,
		Scores: sortedScores,
		Raw: map[string]any{
			"sequence": text,
			"labels":   sortedLabels,
			"scores":   sortedScores,
		},
	}, nil
}

func (c *ZeroShotClassifier) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Destroy()
	}
	if c.tokenizer != nil {
		if cerr := c.tokenizer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// hypotheses fills template with each label. A template without "{}" gets
// the label appended.
func hypotheses(template string, labels []string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		if strings.Contains(template, "{}") {
			out[i] = strings.Replace(template, "{}", label, 1)
		} else {
			out[i] = template + " " + label
		}
	}
	return out
}

// encodePairs builds "[CLS] premise [SEP] hypothesis [SEP]" for every
// hypothesis. Both sides are encoded with special tokens and the
// hypothesis' leading token is dropped. Only the premise is truncated.
func encodePairs(tk Tokenizer, premise string, hyps []string, maxLen int, padID int64, withTypes bool) *tokenBatch {
	premiseIDs, _ := tk.Encode(premise, true)

	seqs := make([][]uint32, len(hyps))
	var types [][]int64
	if withTypes {
		types = make([][]int64, len(hyps))
	}

	for i, h := range hyps {
		hypIDs, _ := tk.Encode(h, true)
		if len(hypIDs) > 0 {
			hypIDs = hypIDs[1:]
		}

		first := premiseIDs
		if maxLen > 0 && len(first)+len(hypIDs) > maxLen {
			first = truncateKeepLast(first, max(maxLen-len(hypIDs), 2))
		}

		seq := make([]uint32, 0, len(first)+len(hypIDs))
		seq = append(seq, first...)
		seq = append(seq, hypIDs...)
		seqs[i] = seq

		if withTypes {
			tt := make([]int64, len(seq))
			for j := len(first); j < len(seq); j++ {
				tt[j] = 1
			}
			types[i] = tt
		}
	}
	return newTokenBatch(seqs, types, padID)
}

func batchTensors(b *tokenBatch) ([]ort.Value, error) {
	data := [][]int64{b.inputIDs, b.attentionMask}
	if b.tokenTypeIDs != nil {
		data = append(data, b.tokenTypeIDs)
	}

	inputs := make([]ort.Value, 0, len(data))
	for _, d := range data {
		t, err := int64Tensor(b.rows, b.cols, d)
		if err != nil {
			for _, in := range inputs {
				in.Destroy()
			}
			return nil, err
		}
		inputs = append(inputs, t)
	}
	return inputs, nil
}

// entailmentScores takes the entailment column of a [n, numClasses] logit
// matrix and softmaxes it across the n labels.
func entailmentScores(logits []float32, numClasses, entailmentIndex int) []float64 {
	n := len(logits) / numClasses
	entail := make([]float32, n)
	for i := 0; i < n; i++ {
		entail[i] = logits[i*numClasses+entailmentIndex]
	}
	return service.Softmax(entail)
}

// sortByScore orders labels by descending score. Equal scores keep input
// order.
func sortByScore(labels []string, scores []float64) ([]string, []float64) {
	idx := make([]int, len(labels))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	sortedLabels := make([]string, len(idx))
	sortedScores := make([]float64, len(idx))
	for i, j := range idx {
		sortedLabels[i] = labels[j]
		sortedScores[i] = scores[j]
	}
	return sortedLabels, sortedScores
}
