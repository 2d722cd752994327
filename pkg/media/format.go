package media

import "time"

// AudioFormat 描述单声道/多声道线性PCM的参数
type AudioFormat struct {
	SampleRate    int `json:"sampleRate"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bitsPerSample"`
}

// DefaultAudioFormat 16kHz、16bit、单声道
func DefaultAudioFormat() AudioFormat {
	return AudioFormat{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// ComputeSampleByteCount 返回每毫秒音频的字节数
func ComputeSampleByteCount(sampleRate, bitDepth, channels int) int {
	return sampleRate * (bitDepth / 8) * channels / 1000
}

// BytesPerMillisecond 每毫秒字节数
func (f AudioFormat) BytesPerMillisecond() int {
	return ComputeSampleByteCount(f.SampleRate, f.BitsPerSample, f.Channels)
}

// BlockAlign 单个采样帧（所有声道）的字节数
func (f AudioFormat) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ChunkSize 给定时长对应的字节数
func (f AudioFormat) ChunkSize(ms int) int {
	return f.BytesPerMillisecond() * ms
}

// Duration 字节数对应的音频时长
func (f AudioFormat) Duration(n int) time.Duration {
	perSecond := f.SampleRate * f.BlockAlign()
	if perSecond == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(perSecond)
}
