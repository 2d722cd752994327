package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/youpy/go-wav"
)

// WavHeaderSize 标准PCM WAV头长度
const WavHeaderSize = 44

var ErrUnsupportedFormat = errors.New("media: only 16-bit pcm is supported")

// EncodeWAV 将小端16bit PCM封装为WAV容器
func EncodeWAV(format AudioFormat, pcm []byte) ([]byte, error) {
	if format.BitsPerSample != 16 {
		return nil, ErrUnsupportedFormat
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}
	align := format.BlockAlign()
	numFrames := len(pcm) / align

	buf := bytes.NewBuffer(make([]byte, 0, WavHeaderSize+numFrames*align))
	w := wav.NewWriter(buf, uint32(numFrames), uint16(format.Channels), uint32(format.SampleRate), uint16(format.BitsPerSample))

	samples := make([]wav.Sample, numFrames)
	for i := 0; i < numFrames; i++ {
		base := i * align
		for ch := 0; ch < format.Channels && ch < 2; ch++ {
			off := base + ch*2
			samples[i].Values[ch] = int(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
		}
	}
	if err := w.WriteSamples(samples); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV 解析WAV，返回格式与PCM数据
func DecodeWAV(data []byte) (AudioFormat, []byte, error) {
	r := wav.NewReader(bytes.NewReader(data))
	f, err := r.Format()
	if err != nil {
		return AudioFormat{}, nil, fmt.Errorf("read wav format: %w", err)
	}
	format := AudioFormat{
		SampleRate:    int(f.SampleRate),
		Channels:      int(f.NumChannels),
		BitsPerSample: int(f.BitsPerSample),
	}
	pcm, err := io.ReadAll(r)
	if err != nil {
		return format, nil, fmt.Errorf("read wav data: %w", err)
	}
	return format, pcm, nil
}
