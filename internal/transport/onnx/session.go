package onnx

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide and initialized once.
var runtimeEnv struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	runtimeEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		runtimeEnv.err = ort.InitializeEnvironment()
	})
	return runtimeEnv.err
}

// session runs a BERT-style encoder that outputs [batch, seq, hidden].
type session struct {
	sess       *ort.DynamicAdvancedSession
	inputNames []string
	hiddenDim  int64
	withTypes  bool
}

func newSession(modelPath, libPath string) (*session, error) {
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("init runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}

	names, withTypes, err := inputOrder(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[2] <= 0 {
		return nil, fmt.Errorf("expected [batch, seq, hidden] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	_ = opts.SetIntraOpNumThreads(min(runtime.NumCPU(), 4))
	_ = opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, names, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session{sess: sess, inputNames: names, hiddenDim: dims[2], withTypes: withTypes}, nil
}

// inputOrder returns the tensor names fed to Run. token_type_ids is optional;
// some exports drop it.
func inputOrder(inputs []ort.InputOutputInfo) ([]string, bool, error) {
	present := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		present[in.Name] = true
	}
	for _, name := range []string{"input_ids", "attention_mask"} {
		if !present[name] {
			return nil, false, fmt.Errorf("model missing input %q", name)
		}
	}
	if present["token_type_ids"] {
		return []string{"input_ids", "attention_mask", "token_type_ids"}, true, nil
	}
	return []string{"input_ids", "attention_mask"}, false, nil
}

// run returns the flat hidden states, [size * seqLen * hiddenDim].
func (s *session) run(b batch) ([]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)

	feeds := [][]int64{b.inputIDs, b.attentionMask}
	if s.withTypes {
		feeds = append(feeds, b.tokenTypeIDs)
	}

	in := make([]ort.Value, 0, len(feeds))
	defer func() {
		for _, v := range in {
			_ = v.Destroy()
		}
	}()
	for i, data := range feeds {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("%s tensor: %w", s.inputNames[i], err)
		}
		in = append(in, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.size, b.seqLen, s.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer func() { _ = out.Destroy() }()

	if err := s.sess.Run(in, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	data := out.GetData()
	hidden := make([]float32, len(data))
	copy(hidden, data)
	return hidden, nil
}

func (s *session) close() error {
	return s.sess.Destroy()
}
