package vad

import "math"

// EnergyModel 基于RMS能量的简易模型，没有ONNX模型时使用
// 概率 = rms/(rms+threshold)，rms等于threshold时为0.5
type EnergyModel struct {
	threshold float64
}

// NewEnergyModel threshold 为16bit幅度下的RMS值
func NewEnergyModel(threshold float64) *EnergyModel {
	if threshold <= 0 {
		threshold = 500
	}
	return &EnergyModel{threshold: threshold}
}

func (m *EnergyModel) Probability(input []float32, hidden Hidden) (float32, Hidden, error) {
	frame := input
	if len(frame) > FrameSamples {
		frame = frame[len(frame)-FrameSamples:]
	}
	rms := calculateRMS(frame)
	return float32(rms / (rms + m.threshold)), hidden, nil
}

func (m *EnergyModel) Close() error { return nil }

// calculateRMS 归一化采样的RMS，换算回16bit幅度（0-32767）
func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		v := float64(s) * 32767
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
