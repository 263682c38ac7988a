package runner

import (
	"bufio"
	"io"
)

// chunkScanner frames a stream into chunks terminated by '\n' or '\r'.
// The terminator is kept as the chunk's last byte so the caller can tell
// which one fired; splitChunk strips it off again. A "\r\n" pair counts as
// a single newline-terminated chunk. Chunks grow as needed; there is no
// upper bound on chunk length.
type chunkScanner struct {
	r   *bufio.Reader
	buf []byte
	err error
}

func newChunkScanner(r io.Reader) *chunkScanner {
	return &chunkScanner{r: bufio.NewReader(r)}
}

// scan reads the next chunk into the scanner's buffer. It returns false
// once the stream is exhausted; Err tells a read failure apart from a
// plain end of stream.
func (s *chunkScanner) scan() bool {
	s.buf = s.buf[:0]

	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err != io.EOF {
				s.err = err
			}
			// unterminated trailing chunk
			return len(s.buf) > 0
		}

		s.buf = append(s.buf, b)

		switch b {
		case '\n':
			return true
		case '\r':
			// one more byte tells "\r\n" apart from a carriage-return
			// terminated chunk; at end of stream the '\r' stands alone
			if next, err := s.r.Peek(1); err == nil && next[0] == '\n' {
				s.r.ReadByte()
				s.buf[len(s.buf)-1] = '\n'
			}
			return true
		}
	}
}

// chunk returns the current chunk. It is only valid until the next call
// to scan.
func (s *chunkScanner) chunk() []byte {
	return s.buf
}

func (s *chunkScanner) Err() error {
	return s.err
}

// splitChunk separates a scanned chunk into its payload and the line
// ending that produced it. Unterminated chunks count as newline-ended.
func splitChunk(token []byte) (LineEnding, []byte) {
	if n := len(token); n > 0 {
		switch token[n-1] {
		case '\r':
			return CarriageReturn, token[:n-1]
		case '\n':
			return Newline, token[:n-1]
		}
	}
	return Newline, token
}
