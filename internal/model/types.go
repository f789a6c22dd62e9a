package model

// Tokenizer turns text into token ids. *tokenizers.Tokenizer satisfies it.
type Tokenizer interface {
	Encode(text string, addSpecialTokens bool) ([]uint32, []string)
	Close() error
}

// TokenizerLoader opens the tokenizer file at path.
type TokenizerLoader func(path string) (Tokenizer, error)

// tokenBatch is a right-padded [rows, cols] batch of token ids ready to be
// wrapped in int64 tensors.
type tokenBatch struct {
	rows, cols    int
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
}

// newTokenBatch pads seqs to the longest sequence with padID. types may be
// nil; when present it must be parallel to seqs.
func newTokenBatch(seqs [][]uint32, types [][]int64, padID int64) *tokenBatch {
	cols := 0
	for _, s := range seqs {
		cols = max(cols, len(s))
	}

	b := &tokenBatch{
		rows:          len(seqs),
		cols:          cols,
		inputIDs:      make([]int64, len(seqs)*cols),
		attentionMask: make([]int64, len(seqs)*cols),
	}
	if types != nil {
		b.tokenTypeIDs = make([]int64, len(seqs)*cols)
	}

	for r, s := range seqs {
		row := r * cols
		for c := 0; c < cols; c++ {
			if c < len(s) {
				b.inputIDs[row+c] = int64(s[c])
				b.attentionMask[row+c] = 1
				if types != nil {
					b.tokenTypeIDs[row+c] = types[r][c]
				}
			} else {
				b.inputIDs[row+c] = padID
			}
		}
	}
	return b
}

// truncateKeepLast shortens ids to maxLen, keeping the final token (the
// closing special token) in place.
func truncateKeepLast(ids []uint32, maxLen int) []uint32 {
	if maxLen <= 0 || len(ids) <= maxLen {
		return ids
	}
	if maxLen == 1 {
		return ids[len(ids)-1:]
	}
	out := make([]uint32, 0, maxLen)
	out = append(out, ids[:maxLen-1]...)
	return append(out, ids[len(ids)-1])
}
