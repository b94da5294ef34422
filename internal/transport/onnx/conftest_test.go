package onnx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"npm", "err", "!", "unable", "to", "resolve", "dependency", "tree",
	"type", "##error", "error", ":", "cannot", "read", "cafe", "'", "x",
	"un", "##def", "##ined",
}

func writeTestVocab(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(testTokens, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func newTestTokenizer(t *testing.T, maxSeqLen int) *tokenizer {
	t.Helper()
	v, err := loadVocabFile(writeTestVocab(t))
	if err != nil {
		t.Fatalf("load vocab: %v", err)
	}
	return newTokenizer(v, maxSeqLen)
}

func tokenID(t *testing.T, tok string) int64 {
	t.Helper()
	for i, s := range testTokens {
		if s == tok {
			return int64(i)
		}
	}
	t.Fatalf("token %q not in test vocab", tok)
	return -1
}
