package onnx

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxSeqLen matches the all-MiniLM-L6-v2 training length.
const DefaultMaxSeqLen = 128

// maxWordRunes is the longest word WordPiece tries to split; longer words become [UNK].
const maxWordRunes = 200

// batch is a tokenized input, flat [size * seqLen], padded to the longest sequence.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer is an uncased BERT WordPiece tokenizer.
type tokenizer struct {
	vocab     *vocab
	maxSeqLen int
}

func newTokenizer(v *vocab, maxSeqLen int) *tokenizer {
	if maxSeqLen < 3 {
		maxSeqLen = DefaultMaxSeqLen
	}
	return &tokenizer{vocab: v, maxSeqLen: maxSeqLen}
}

// encode returns [CLS] pieces... [SEP] ids for one text, truncated to maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.wordpiece(basicTokens(text))
	if limit := t.maxSeqLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}

	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.cls)
	for _, p := range pieces {
		ids = append(ids, t.vocab.id(p))
	}
	return append(ids, t.vocab.sep)
}

func (t *tokenizer) encodeBatch(texts []string) batch {
	if len(texts) == 0 {
		return batch{}
	}

	seqs := make([][]int64, len(texts))
	var seqLen int64
	for i, text := range texts {
		seqs[i] = t.encode(text)
		seqLen = max(seqLen, int64(len(seqs[i])))
	}

	size := int64(len(texts))
	b := batch{
		inputIDs:      make([]int64, size*seqLen),
		attentionMask: make([]int64, size*seqLen),
		tokenTypeIDs:  make([]int64, size*seqLen),
		size:          size,
		seqLen:        seqLen,
	}
	for i, ids := range seqs {
		off := int64(i) * seqLen
		copy(b.inputIDs[off:], ids)
		for j := range ids {
			b.attentionMask[off+int64(j)] = 1
		}
		for j := int64(len(ids)); j < seqLen; j++ {
			b.inputIDs[off+j] = t.vocab.pad
		}
	}
	return b
}

func (t *tokenizer) wordpiece(words []string) []string {
	var out []string
	for _, w := range words {
		out = append(out, t.splitWord(w)...)
	}
	return out
}

// splitWord is greedy longest-match-first; continuation pieces carry "##".
func (t *tokenizer) splitWord(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			cand := string(runes[start:end])
			if start > 0 {
				cand = "##" + cand
			}
			if t.vocab.has(cand) {
				piece = cand
				break
			}
		}
		if piece == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

// basicTokens cleans, lowercases, strips accents and splits on whitespace and punctuation.
func basicTokens(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isSpace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	folded := stripAccents(strings.ToLower(b.String()))

	var tokens []string
	for _, word := range strings.Fields(folded) {
		tokens = appendPunctSplit(tokens, word)
	}
	return tokens
}

func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func appendPunctSplit(tokens []string, word string) []string {
	start := 0
	for i, r := range word {
		if !isPunct(r) {
			continue
		}
		if i > start {
			tokens = append(tokens, word[start:i])
		}
		tokens = append(tokens, string(r))
		start = i + len(string(r))
	}
	if start < len(word) {
		tokens = append(tokens, word[start:])
	}
	return tokens
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunct follows BERT: all non-alphanumeric ASCII symbols count, plus Unicode P*.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
