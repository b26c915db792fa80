package containerfs

import (
	"compress/gzip"
	"fmt"
	"io"
)

// Compress applies single-shot DEFLATE (gzip) compression to src, writing
// the compressed stream to dst. It is independent of archiving and can be
// applied to any stream.
func Compress(dst io.Writer, src io.Reader) error {
	zw := gzip.NewWriter(dst)

	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		return fmt.Errorf("failed to compress stream: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize compressed stream: %w", err)
	}
	return nil
}

// Decompress reverses Compress, writing the decompressed stream to dst.
func Decompress(dst io.Writer, src io.Reader) error {
	zr, err := gzip.NewReader(src)
	if err != nil {
		return fmt.Errorf("failed to read compressed stream: %w", err)
	}

	if _, err := io.Copy(dst, zr); err != nil {
		zr.Close()
		return fmt.Errorf("failed to decompress stream: %w", err)
	}

	if err := zr.Close(); err != nil {
		return fmt.Errorf("failed to finalize decompressed stream: %w", err)
	}
	return nil
}
