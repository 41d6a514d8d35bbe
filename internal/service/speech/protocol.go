package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Binary framing used by the streaming ASR endpoint. Every frame starts with a
// 4-byte header; an optional sequence number and the payload size follow.
const protocolVersion = 0b0001

// MessageType is the high nibble of the second header byte.
type MessageType uint8

const (
	FullClientRequest  MessageType = 0b0001
	AudioOnlyRequest   MessageType = 0b0010
	FullServerResponse MessageType = 0b1001
	ServerAck          MessageType = 0b1011
	ErrorMessage       MessageType = 0b1111
)

// MessageFlags is the low nibble of the second header byte.
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
)

// Serialization is the high nibble of the third header byte.
type Serialization uint8

const (
	RawSerialization  Serialization = 0b0000
	JSONSerialization Serialization = 0b0001
)

// Compression is the low nibble of the third header byte.
type Compression uint8

const (
	NoCompression   Compression = 0b0000
	GzipCompression Compression = 0b0001
)

var ErrShortFrame = errors.New("frame shorter than its header")

// Header is the fixed part of a frame.
type Header struct {
	Version       uint8
	Size          uint8 // in 4-byte words
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression
}

// Frame is one websocket binary message.
type Frame struct {
	Header    Header
	Sequence  int32
	ErrorCode uint32
	Payload   []byte
}

func newHeader(typ MessageType, flags MessageFlags, ser Serialization, comp Compression) Header {
	return Header{
		Version:       protocolVersion,
		Size:          1,
		Type:          typ,
		Flags:         flags,
		Serialization: ser,
		Compression:   comp,
	}
}

func (h Header) bytes() [4]byte {
	return [4]byte{
		h.Version<<4 | h.Size&0x0F,
		uint8(h.Type)<<4 | uint8(h.Flags)&0x0F,
		uint8(h.Serialization)<<4 | uint8(h.Compression)&0x0F,
		0,
	}
}

func (f *Frame) hasSequence() bool {
	return f.Header.Flags == PositiveSequence || f.Header.Flags == NegativeSequence
}

// Last reports whether the frame closes the stream.
func (f *Frame) Last() bool {
	return f.Header.Flags == LastNoSequence || f.Header.Flags == NegativeSequence
}

// Encode serializes the frame.
func (f *Frame) Encode() []byte {
	var buf bytes.Buffer
	head := f.Header.bytes()
	buf.Write(head[:])

	if f.hasSequence() {
		_ = binary.Write(&buf, binary.BigEndian, f.Sequence)
	}
	if f.Header.Type == ErrorMessage {
		_ = binary.Write(&buf, binary.BigEndian, f.ErrorCode)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(f.Payload)))
	buf.Write(f.Payload)
	return buf.Bytes()
}

// DecodeFrame parses one frame.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < 4 {
		return nil, ErrShortFrame
	}

	h := Header{
		Version:       data[0] >> 4,
		Size:          data[0] & 0x0F,
		Type:          MessageType(data[1] >> 4),
		Flags:         MessageFlags(data[1] & 0x0F),
		Serialization: Serialization(data[2] >> 4),
		Compression:   Compression(data[2] & 0x0F),
	}
	if h.Version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", h.Version)
	}
	if h.Size == 0 || int(h.Size)*4 > len(data) {
		return nil, ErrShortFrame
	}

	f := &Frame{Header: h}
	r := bytes.NewReader(data[int(h.Size)*4:])

	if f.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &f.Sequence); err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
	}
	if h.Type == ErrorMessage {
		if err := binary.Read(r, binary.BigEndian, &f.ErrorCode); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		if errors.Is(err, io.EOF) && h.Type == ServerAck {
			return f, nil
		}
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if int64(size) > int64(r.Len()) {
		return nil, fmt.Errorf("payload size %d exceeds frame (%d bytes left)", size, r.Len())
	}
	f.Payload = make([]byte, size)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return f, nil
}

// configFrame carries the JSON session request.
func configFrame(payload []byte) *Frame {
	return &Frame{
		Header:  newHeader(FullClientRequest, NoSequence, JSONSerialization, GzipCompression),
		Payload: payload,
	}
}

// audioFrame carries one audio packet. The last packet negates its sequence.
func audioFrame(audio []byte, seq int32, last bool) *Frame {
	flags := PositiveSequence
	if last {
		flags = NegativeSequence
		seq = -seq
	}
	return &Frame{
		Header:   newHeader(AudioOnlyRequest, flags, RawSerialization, GzipCompression),
		Sequence: seq,
		Payload:  audio,
	}
}
