package vad

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

var (
	ortMu   sync.Mutex
	ortRefs int
)

// SileroModel Silero VAD 16k ONNX 模型
// 一个 DynamicAdvancedSession 在所有连接间共享，每次推理单独分配张量
type SileroModel struct {
	session *ort.DynamicAdvancedSession
	sr      int64
	logger  *zap.Logger
}

// NewSileroModel 加载模型。runtimeLib 为空时使用 onnxruntime_go 的默认库路径
func NewSileroModel(modelPath, runtimeLib string, logger *zap.Logger) (*SileroModel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := acquireEnvironment(runtimeLib); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(1); err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("set intra op threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("set inter op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		opts)
	if err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("load silero model %s: %w", modelPath, err)
	}

	logger.Info("silero vad model loaded", zap.String("path", modelPath))
	return &SileroModel{session: session, sr: SampleRate, logger: logger}, nil
}

func (m *SileroModel) Probability(input []float32, hidden Hidden) (float32, Hidden, error) {
	var next Hidden

	inTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return 0, next, fmt.Errorf("input tensor: %w", err)
	}
	defer inTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), hidden[:])
	if err != nil {
		return 0, next, fmt.Errorf("state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{m.sr})
	if err != nil {
		return 0, next, fmt.Errorf("sr tensor: %w", err)
	}
	defer srTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, next, fmt.Errorf("output tensor: %w", err)
	}
	defer outTensor.Destroy()

	stateOut, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		return 0, next, fmt.Errorf("stateN tensor: %w", err)
	}
	defer stateOut.Destroy()

	if err := m.session.Run(
		[]ort.Value{inTensor, stateTensor, srTensor},
		[]ort.Value{outTensor, stateOut},
	); err != nil {
		return 0, next, fmt.Errorf("silero run: %w", err)
	}

	copy(next[:], stateOut.GetData())
	return outTensor.GetData()[0], next, nil
}

func (m *SileroModel) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	releaseEnvironment()
	return err
}

func acquireEnvironment(runtimeLib string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortRefs == 0 && !ort.IsInitialized() {
		if runtimeLib != "" {
			ort.SetSharedLibraryPath(runtimeLib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("init onnxruntime: %w", err)
		}
	}
	ortRefs++
	return nil
}

func releaseEnvironment() {
	ortMu.Lock()
	defer ortMu.Unlock()
	ortRefs--
	if ortRefs <= 0 {
		ortRefs = 0
		if ort.IsInitialized() {
			_ = ort.DestroyEnvironment()
		}
	}
}
