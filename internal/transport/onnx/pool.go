package onnx

import "fmt"

// Pooling strategies.
const (
	// PoolCLS takes the first token's hidden state.
	PoolCLS = "cls"
	// PoolMean averages hidden states over non-padding tokens.
	PoolMean = "mean"
)

// pool reduces hidden states [size * seqLen * dim] to one vector per sequence.
func pool(strategy string, hidden []float32, mask []int64, size, seqLen, dim int64) ([][]float32, error) {
	out := make([][]float32, size)
	for b := range size {
		seq := hidden[b*seqLen*dim : (b+1)*seqLen*dim]
		switch strategy {
		case PoolCLS, "":
			v := make([]float32, dim)
			copy(v, seq[:dim])
			out[b] = v
		case PoolMean:
			out[b] = meanPool(seq, mask[b*seqLen:(b+1)*seqLen], dim)
		default:
			return nil, fmt.Errorf("unknown pooling %q", strategy)
		}
	}
	return out, nil
}

func meanPool(seq []float32, mask []int64, dim int64) []float32 {
	v := make([]float32, dim)
	var n float32
	for s, m := range mask {
		if m != 1 {
			continue
		}
		n++
		tok := seq[int64(s)*dim : int64(s+1)*dim]
		for d := range v {
			v[d] += tok[d]
		}
	}
	if n > 0 {
		for d := range v {
			v[d] /= n
		}
	}
	return v
}
