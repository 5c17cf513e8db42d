package model

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// InitONNXRuntime initializes the ONNX Runtime environment from the given
// shared library. Only the first call has any effect.
func InitONNXRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXModel runs a model exported to ONNX (e.g. via tf2onnx from the Keras
// artifact). The model must take a single float32 input of shape [batch, dim]
// and produce a single float32 output whose first element is the raw score.
type ONNXModel struct {
	name       string
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	dim        int64
	outShape   ort.Shape
}

// NewONNXModel creates an inference session from ONNX bytes.
func NewONNXModel(name string, data []byte, libPath string) (*ONNXModel, error) {
	if err := InitONNXRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(data)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: expected 1 input and at least 1 output, got %d/%d", len(inputs), len(outputs))
	}
	inDims := inputs[0].Dimensions
	if len(inDims) != 2 || inDims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected input shape [batch, dim], got %v", inDims)
	}

	// batch 维度通常是动态的 (-1)，单条推理固定为 1
	outShape := make(ort.Shape, len(outputs[0].Dimensions))
	for i, d := range outputs[0].Dimensions {
		if d <= 0 {
			d = 1
		}
		outShape[i] = d
	}
	if outShape.FlattenedSize() < 1 {
		return nil, fmt.Errorf("onnx: unexpected output shape %v", outputs[0].Dimensions)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		data,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	if name == "" {
		name = "onnx"
	}

	return &ONNXModel{
		name:       name,
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		dim:        inDims[1],
		outShape:   outShape,
	}, nil
}

func (m *ONNXModel) Name() string  { return m.name }
func (m *ONNXModel) InputDim() int { return int(m.dim) }

// Predict runs a single-record batch.
func (m *ONNXModel) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := checkInput(m, x); err != nil {
		return 0, err
	}

	data := make([]float32, len(x))
	for i, v := range x {
		data[i] = float32(v)
	}
	in, err := ort.NewTensor(ort.NewShape(1, m.dim), data)
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](m.outShape)
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := m.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return 0, fmt.Errorf("onnx: inference failed: %w", err)
	}
	return checkOutput(m, float64(out.GetData()[0]))
}

// Close releases the ONNX session resources.
func (m *ONNXModel) Close() error {
	return m.session.Destroy()
}

var _ Model = (*ONNXModel)(nil)
