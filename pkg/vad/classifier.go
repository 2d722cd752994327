package vad

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrFrameSize = errors.New("vad: frame must be 1024 bytes")

// Classifier 帧级语音分类器，本身无状态，可在连接之间共享
type Classifier struct {
	model     Model
	threshold float32
	logger    *zap.Logger
}

// NewClassifier 创建分类器，threshold<=0 时使用默认阈值0.6
func NewClassifier(model Model, threshold float64, logger *zap.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{model: model, threshold: float32(threshold), logger: logger}
}

// Threshold 判定阈值
func (c *Classifier) Threshold() float32 {
	return c.threshold
}

// Score 计算一帧的语音概率并返回推进后的状态
// 出错时返回原状态
func (c *Classifier) Score(frame []byte, st State) (float32, State, error) {
	if len(frame) != FrameBytes {
		return 0, st, fmt.Errorf("%w: got %d", ErrFrameSize, len(frame))
	}

	input := make([]float32, ContextSamples+FrameSamples)
	copy(input, st.Context[:])
	for i := 0; i < FrameSamples; i++ {
		sample := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		input[ContextSamples+i] = float32(sample) / 32767.0
	}

	prob, hidden, err := c.model.Probability(input, st.Hidden)
	if err != nil {
		return 0, st, err
	}

	next := State{Hidden: hidden}
	copy(next.Context[:], input[len(input)-ContextSamples:])
	return prob, next, nil
}

// Classify 判定一帧是否为语音
// 帧长不对或模型出错都视为非语音，状态保持不变
func (c *Classifier) Classify(frame []byte, st State) (bool, State) {
	prob, next, err := c.Score(frame, st)
	if err != nil {
		if !errors.Is(err, ErrFrameSize) {
			c.logger.Warn("vad inference failed", zap.Error(err))
		}
		return false, st
	}
	return prob >= c.threshold, next
}
