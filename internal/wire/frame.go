// frame.go — the fixed 6-byte frame header and its command taxonomy.
//
// Every frame on the wire is a 6-byte big-endian header followed by
// exactly size bytes of opaque payload:
//
//	offset 0  uint16  id
//	offset 2  uint16  command
//	offset 4  uint16  size (max 65535)
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size, in bytes, of every frame header.
const HeaderSize = 6

// MaxPayload is the largest payload a 16-bit size field can address.
const MaxPayload = 65535

// Command identifies the behavioral role of a frame. Values are stable
// once assigned but are an implementation detail of this module, not
// part of any other wire format.
type Command uint16

// Client → server commands.
const (
	CmdQuery Command = iota + 1
	CmdCommit
	CmdCancel
	CmdFilterSite
	CmdFilterHost
	CmdFilterURI
	CmdFollow
	CmdInjectLogRecord
	CmdFilterStatus
	CmdFilterSince
	CmdFilterUntil
)

// Server → client commands.
const (
	CmdNop Command = iota + 100
	CmdError
	CmdLogRecord
	CmdEnd
)

// ErrOversizedPayload is returned by Encode when payload exceeds MaxPayload.
var ErrOversizedPayload = errors.New("wire: payload exceeds 65535 bytes")

// ErrShortHeader is returned by DecodeHeader when fewer than HeaderSize bytes are available.
var ErrShortHeader = errors.New("wire: short frame header")

// Header is the fixed 6-byte frame preamble.
type Header struct {
	ID      uint16
	Command Command
	Size    uint16
}

// Encode writes the header's 6 bytes into buf, which must be at least HeaderSize long.
func (h Header) Encode(buf []byte) {
	binary.BigEndian.PutUint16(buf[0:2], h.ID)
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.Command))
	binary.BigEndian.PutUint16(buf[4:6], h.Size)
}

// DecodeHeader parses a Header from the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		ID:      binary.BigEndian.Uint16(buf[0:2]),
		Command: Command(binary.BigEndian.Uint16(buf[2:4])),
		Size:    binary.BigEndian.Uint16(buf[4:6]),
	}, nil
}

// Frame is a decoded header plus its payload.
type Frame struct {
	ID      uint16
	Command Command
	Payload []byte
}

// Encode renders f as wire bytes: a 6-byte header followed by Payload.
// Returns ErrOversizedPayload if len(Payload) > MaxPayload.
func (f Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversizedPayload, len(f.Payload))
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	Header{ID: f.ID, Command: f.Command, Size: uint16(len(f.Payload))}.Encode(buf)
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

func (c Command) String() string {
	switch c {
	case CmdQuery:
		return "QUERY"
	case CmdCommit:
		return "COMMIT"
	case CmdCancel:
		return "CANCEL"
	case CmdFilterSite:
		return "FILTER_SITE"
	case CmdFilterHost:
		return "FILTER_HOST"
	case CmdFilterURI:
		return "FILTER_URI"
	case CmdFollow:
		return "FOLLOW"
	case CmdInjectLogRecord:
		return "INJECT_LOG_RECORD"
	case CmdFilterStatus:
		return "FILTER_STATUS"
	case CmdFilterSince:
		return "FILTER_SINCE"
	case CmdFilterUntil:
		return "FILTER_UNTIL"
	case CmdNop:
		return "NOP"
	case CmdError:
		return "ERROR"
	case CmdLogRecord:
		return "LOG_RECORD"
	case CmdEnd:
		return "END"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(c))
	}
}
