package vad

const (
	// SampleRate 模型要求的采样率
	SampleRate = 16000
	// FrameSamples 每帧采样点数（32ms）
	FrameSamples = 512
	// FrameBytes 每帧字节数（16bit单声道）
	FrameBytes = FrameSamples * 2
	// ContextSamples 跨帧携带的上下文采样点数
	ContextSamples = 128
	// HiddenSize 循环状态大小 [2,1,128]
	HiddenSize = 2 * 1 * 128

	DefaultThreshold = 0.6
)

// Hidden 模型循环状态，按 [2,1,128] 行优先展开
type Hidden [HiddenSize]float32

// State 单条连接的分类器状态
// 值类型：Classify 读入旧状态返回新状态，不会修改入参
type State struct {
	Context [ContextSamples]float32
	Hidden  Hidden
}

// NewState 初始状态（全零）
func NewState() State {
	return State{}
}

// Model 语音概率模型
// input 长度为 ContextSamples+FrameSamples，取值范围 [-1,1]
// 实现需要支持多个连接并发调用
type Model interface {
	Probability(input []float32, hidden Hidden) (float32, Hidden, error)
	Close() error
}
