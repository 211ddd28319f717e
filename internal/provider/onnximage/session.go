package onnximage

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// scorer runs the classifier on a preprocessed tensor and returns one score
// per model class, in model order.
type scorer interface {
	score(input []float32) ([]float32, error)
	close() error
}

// onnxSession wraps a DynamicAdvancedSession for a single-input,
// single-output image classifier.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputShape ort.Shape
	numClasses int64
	layout     Layout
}

// newONNXSession loads the model and validates its tensor shapes against
// the expected image size and class count. An empty libPath resolves to
// libonnxruntime.so next to the model.
func newONNXSession(modelPath, libPath string, size int, numClasses int) (*onnxSession, error) {
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}

	layout, err := detectLayout(inputs[0].Dimensions, size)
	if err != nil {
		return nil, err
	}

	outDims := outputs[0].Dimensions
	if len(outDims) != 2 || outDims[1] != int64(numClasses) {
		return nil, fmt.Errorf("onnx: expected output shape [batch, %d], got %v", numClasses, outDims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	s64 := int64(size)
	shape := ort.NewShape(1, s64, s64, channels)
	if layout == LayoutNCHW {
		shape = ort.NewShape(1, channels, s64, s64)
	}

	return &onnxSession{
		session:    session,
		inputShape: shape,
		numClasses: int64(numClasses),
		layout:     layout,
	}, nil
}

// detectLayout accepts [N,H,W,3] or [N,3,H,W]; dynamic dims (-1) match any size.
func detectLayout(dims ort.Shape, size int) (Layout, error) {
	if len(dims) != 4 {
		return 0, fmt.Errorf("onnx: expected 4D image input, got %v", dims)
	}
	match := func(d int64, want int) bool { return d == -1 || d == int64(want) }
	switch {
	case dims[3] == channels && match(dims[1], size) && match(dims[2], size):
		return LayoutNHWC, nil
	case dims[1] == channels && match(dims[2], size) && match(dims[3], size):
		return LayoutNCHW, nil
	default:
		return 0, fmt.Errorf("onnx: input shape %v does not fit a %dx%d RGB image", dims, size, size)
	}
}

// score runs one inference. Sessions are safe for concurrent Run calls and
// tensors are allocated per call.
func (s *onnxSession) score(input []float32) ([]float32, error) {
	in, err := ort.NewTensor(s.inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, s.numClasses))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// copy out before the tensor is destroyed
	src := out.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
