package wire

import (
	"errors"
	"io"
)

// ReadFrame reads one frame from r, blocking until a full header and
// payload are available. io.EOF is returned verbatim when the stream
// ends exactly on a frame boundary; any other short read is wrapped as
// an unexpected-EOF style error via io.ReadFull's own behavior.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdrBuf [HeaderSize]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		return Frame{}, err
	}
	hdr, err := DecodeHeader(hdrBuf[:])
	if err != nil {
		return Frame{}, err
	}
	payload := make([]byte, hdr.Size)
	if hdr.Size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
	}
	return Frame{ID: hdr.ID, Command: hdr.Command, Payload: payload}, nil
}

// WriteFrame encodes f and writes it to w in a single Write call, so a
// partial frame is never observable on the wire.
func WriteFrame(w io.Writer, f Frame) error {
	buf, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
