package cbf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Section delimiters and the magic bytes that open every binary payload.
const (
	StartSentinel = "--CIF-BINARY-FORMAT-SECTION--\r\n"
	EndSentinel   = "--CIF-BINARY-FORMAT-SECTION----\r\n"
)

var binaryMagic = [4]byte{0x0C, 0x1A, 0x04, 0xD5}

// scanTo discards lines from r until one equals needle exactly. It reports
// false, with a nil error, when the stream ends first.
func scanTo(r *bufio.Reader, needle string) (bool, error) {
	for {
		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// An over-long line cannot be the sentinel; drain the rest of it.
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = r.ReadSlice('\n')
			}
			if err == nil {
				continue
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, fmt.Errorf("failed to scan for section marker: %w", err)
		}
		if string(line) == needle {
			return true, nil
		}
	}
}

// checkMagic consumes the four magic bytes that follow the header block.
func checkMagic(r io.Reader) error {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("failed to read binary header: %w", err)
	}
	if !bytes.Equal(got[:], binaryMagic[:]) {
		return fmt.Errorf("%w: % X", ErrUnrecognisedBinaryHeader, got)
	}
	return nil
}
