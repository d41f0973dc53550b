// Package streamio provides the small set of buffered-copy and
// seek/size helpers every container handler needs when splicing bytes
// between an input and output file handle.
package streamio

import (
	"io"
	"os"
)

// CopyN copies exactly n bytes from src to dst using a fixed-size
// buffer, returning an error if fewer than n bytes could be read.
func CopyN(dst io.Writer, src io.Reader, n int64) error {
	_, err := io.CopyN(dst, src, n)
	return err
}

// CopyAll copies every remaining byte from src to dst.
func CopyAll(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

// Size returns the size in bytes of the file at path.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadExactAt reads exactly len(buf) bytes from r starting at offset off,
// without disturbing the reader's notion of "current position" for
// callers that reseek afterward.
func ReadExactAt(r io.ReaderAt, buf []byte, off int64) error {
	_, err := r.ReadAt(buf, off)
	return err
}

// ZeroPad writes n zero bytes to w.
func ZeroPad(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := w.Write(make([]byte, n))
	return err
}
