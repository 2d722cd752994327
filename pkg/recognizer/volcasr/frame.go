package volcasr

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformedFrame = errors.New("volcasr: malformed frame")
	ErrDecompress     = errors.New("volcasr: decompress payload failed")
	ErrServerError    = errors.New("volcasr: server error response")
	ErrNoResult       = errors.New("volcasr: no terminal response before timeout")
	ErrConnClosed     = errors.New("volcasr: connection closed before terminal response")
	ErrDial           = errors.New("volcasr: dial failed")
	ErrEmptyAudio     = errors.New("volcasr: empty audio")
)

// Frame 解码后的协议帧
type Frame struct {
	Header Header
	// Code 仅错误帧携带
	Code uint32
	// Sequence 仅 ServerAck 携带
	Sequence int32
	// Payload 已解压
	Payload []byte
}

// EncodeFrame 按头部压缩方式处理payload，写入大端长度
func EncodeFrame(h Header, payload []byte) ([]byte, error) {
	body := payload
	if h.Compression == GZIP {
		var err error
		body, err = gzipCompress(payload)
		if err != nil {
			return nil, err
		}
	}
	head := h.Bytes()
	msg := make([]byte, 0, len(head)+8+len(body))
	msg = append(msg, head...)
	if h.MessageType == ServerErrorResponse {
		msg = binary.BigEndian.AppendUint32(msg, 0)
	}
	msg = binary.BigEndian.AppendUint32(msg, uint32(len(body)))
	msg = append(msg, body...)
	return msg, nil
}

// EncodeErrorFrame 构造服务端错误帧，主要用于测试桩
func EncodeErrorFrame(code uint32, payload []byte) ([]byte, error) {
	h := DefaultHeader().WithMessageType(ServerErrorResponse)
	msg, err := EncodeFrame(h, payload)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint32(msg[h.Len():], code)
	return msg, nil
}

// DecodeFrame 校验头部与声明长度，并解压payload
func DecodeFrame(msg []byte) (*Frame, error) {
	h, err := ParseHeader(msg)
	if err != nil {
		return nil, err
	}
	f := &Frame{Header: h}
	rest := msg[h.Len():]

	switch h.MessageType {
	case ServerErrorResponse:
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: error frame without code", ErrMalformedFrame)
		}
		f.Code = binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
	case ServerAck:
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: ack frame without sequence", ErrMalformedFrame)
		}
		f.Sequence = int32(binary.BigEndian.Uint32(rest[:4]))
		rest = rest[4:]
		if len(rest) == 0 {
			return f, nil
		}
	}

	if len(rest) < 4 {
		return nil, fmt.Errorf("%w: missing payload length", ErrMalformedFrame)
	}
	size := binary.BigEndian.Uint32(rest[:4])
	body := rest[4:]
	if uint64(size) != uint64(len(body)) {
		return nil, fmt.Errorf("%w: declared payload length %d, got %d", ErrMalformedFrame, size, len(body))
	}

	switch h.Compression {
	case GZIP:
		if len(body) > 0 {
			if body, err = gzipDecompress(body); err != nil {
				return nil, err
			}
		}
	case NoCompression:
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrMalformedFrame, h.Compression)
	}
	f.Payload = body
	return f, nil
}

func gzipCompress(input []byte) ([]byte, error) {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write(input); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func gzipDecompress(input []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return out, nil
}
