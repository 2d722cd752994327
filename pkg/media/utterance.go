package media

import "time"

// UtteranceBuffer 按到达顺序缓存一次发言的原始PCM帧
// 只由所属连接的接收协程访问，不加锁
type UtteranceBuffer struct {
	format AudioFormat
	frames [][]byte
	size   int
}

// NewUtteranceBuffer 创建发言缓冲区
func NewUtteranceBuffer(format AudioFormat) *UtteranceBuffer {
	return &UtteranceBuffer{format: format}
}

// Append 追加一帧（复制，调用方可复用frame）
func (b *UtteranceBuffer) Append(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	b.frames = append(b.frames, cp)
	b.size += len(cp)
}

// Frames 返回已缓存帧的副本切片
func (b *UtteranceBuffer) Frames() [][]byte {
	out := make([][]byte, len(b.frames))
	copy(out, b.frames)
	return out
}

// Len 帧数
func (b *UtteranceBuffer) Len() int {
	return len(b.frames)
}

// Size 字节数
func (b *UtteranceBuffer) Size() int {
	return b.size
}

// Bytes 拼接所有帧
func (b *UtteranceBuffer) Bytes() []byte {
	out := make([]byte, 0, b.size)
	for _, f := range b.frames {
		out = append(out, f...)
	}
	return out
}

// Duration 已缓存音频时长
func (b *UtteranceBuffer) Duration() time.Duration {
	return b.format.Duration(b.size)
}

// Format 缓冲区的音频格式
func (b *UtteranceBuffer) Format() AudioFormat {
	return b.format
}

// Reset 清空缓冲区
func (b *UtteranceBuffer) Reset() {
	b.frames = nil
	b.size = 0
}

// Utterance 一次完整发言：起止之间的所有帧
type Utterance struct {
	Format AudioFormat
	Frames [][]byte
	Start  time.Time
	End    time.Time
}

// PCM 拼接后的裸PCM
func (u *Utterance) PCM() []byte {
	var n int
	for _, f := range u.Frames {
		n += len(f)
	}
	out := make([]byte, 0, n)
	for _, f := range u.Frames {
		out = append(out, f...)
	}
	return out
}

// WAV 封装成单声道WAV容器
func (u *Utterance) WAV() ([]byte, error) {
	return EncodeWAV(u.Format, u.PCM())
}

// Duration 发言音频时长
func (u *Utterance) Duration() time.Duration {
	var n int
	for _, f := range u.Frames {
		n += len(f)
	}
	return u.Format.Duration(n)
}
