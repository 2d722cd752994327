package volcasr

import "fmt"

type MessageType byte
type MessageTypeSpecificFlags byte
type SerializationType byte
type CompressionType byte

const (
	ProtocolVersion   = byte(0b0001)
	DefaultHeaderSize = byte(0b0001)

	FullClientRequest   = MessageType(0b0001)
	AudioOnlyRequest    = MessageType(0b0010)
	FullServerResponse  = MessageType(0b1001)
	ServerAck           = MessageType(0b1011)
	ServerErrorResponse = MessageType(0b1111)

	NoFlags   = MessageTypeSpecificFlags(0b0000)
	LastChunk = MessageTypeSpecificFlags(0b0010)

	NoSerialization = SerializationType(0b0000)
	JSON            = SerializationType(0b0001)

	NoCompression = CompressionType(0b0000)
	GZIP          = CompressionType(0b0001)

	SuccessCode = 1000
)

func (t MessageType) String() string {
	switch t {
	case FullClientRequest:
		return "full_client_request"
	case AudioOnlyRequest:
		return "audio_only_request"
	case FullServerResponse:
		return "full_server_response"
	case ServerAck:
		return "server_ack"
	case ServerErrorResponse:
		return "server_error_response"
	default:
		return fmt.Sprintf("message_type(%d)", byte(t))
	}
}

// Header 4字节协议头
//
//	byte0: version(4) | header size(4, 单位4字节)
//	byte1: message type(4) | flags(4)
//	byte2: serialization(4) | compression(4)
//	byte3: reserved
type Header struct {
	Version       byte
	Size          byte
	MessageType   MessageType
	Flags         MessageTypeSpecificFlags
	Serialization SerializationType
	Compression   CompressionType
}

// DefaultHeader 握手帧头：version=1 size=1 type=1 JSON gzip
func DefaultHeader() Header {
	return Header{
		Version:       ProtocolVersion,
		Size:          DefaultHeaderSize,
		MessageType:   FullClientRequest,
		Flags:         NoFlags,
		Serialization: JSON,
		Compression:   GZIP,
	}
}

func (h Header) WithMessageType(t MessageType) Header {
	h.MessageType = t
	return h
}

func (h Header) WithFlags(f MessageTypeSpecificFlags) Header {
	h.Flags = f
	return h
}

func (h Header) WithSerialization(s SerializationType) Header {
	h.Serialization = s
	return h
}

func (h Header) WithCompression(c CompressionType) Header {
	h.Compression = c
	return h
}

// IsLast 是否带最后一包标记
func (h Header) IsLast() bool {
	return h.Flags&LastChunk != 0
}

// Len 头部字节数
func (h Header) Len() int {
	return int(h.Size) * 4
}

// Bytes 序列化，超出4字节的扩展部分补0
func (h Header) Bytes() []byte {
	size := h.Size
	if size == 0 {
		size = DefaultHeaderSize
	}
	out := make([]byte, int(size)*4)
	out[0] = (h.Version&0x0f)<<4 | size&0x0f
	out[1] = byte(h.MessageType&0x0f)<<4 | byte(h.Flags&0x0f)
	out[2] = byte(h.Serialization&0x0f)<<4 | byte(h.Compression&0x0f)
	out[3] = 0x00
	return out
}

// ParseHeader 解析协议头
func ParseHeader(msg []byte) (Header, error) {
	if len(msg) < 4 {
		return Header{}, fmt.Errorf("%w: header needs 4 bytes, got %d", ErrMalformedFrame, len(msg))
	}
	h := Header{
		Version:       msg[0] >> 4,
		Size:          msg[0] & 0x0f,
		MessageType:   MessageType(msg[1] >> 4),
		Flags:         MessageTypeSpecificFlags(msg[1] & 0x0f),
		Serialization: SerializationType(msg[2] >> 4),
		Compression:   CompressionType(msg[2] & 0x0f),
	}
	if h.Version != ProtocolVersion {
		return h, fmt.Errorf("%w: unsupported protocol version %d", ErrMalformedFrame, h.Version)
	}
	if h.Size == 0 || len(msg) < h.Len() {
		return h, fmt.Errorf("%w: header size %d exceeds message length %d", ErrMalformedFrame, h.Len(), len(msg))
	}
	return h, nil
}
