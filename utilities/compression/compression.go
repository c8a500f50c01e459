package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// CompressImage runs input through RLE8 and then gzip, writing the result to
// output.
//
// It returns the number of bytes written to output; on error that count is
// meaningless and should be ignored.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	// io.Writer has no way to report a running total, so track it ourselves.
	counted := countingWriter{Writer: output}

	// Highest compression level: these images are small enough (mostly under
	// 32MiB) that the extra CPU cost is not worth worrying about.
	gzWriter, err := gzip.NewWriterLevel(&counted, gzip.BestCompression)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	_, err = CompressRLE8(input, gzWriter)
	closeErr := gzWriter.Close()
	if err != nil {
		err = fmt.Errorf("RLE8 compression error: %w", err)
	} else if closeErr != nil {
		err = fmt.Errorf("gzip compression error: %w", closeErr)
	}
	return counted.BytesWritten, err
}

// DecompressImage reverses CompressImage: input is a gzipped, RLE8-encoded
// stream; the decoded bytes are written to output.
//
// It returns the number of decompressed bytes written; on error that count
// is meaningless and should be ignored.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// DecompressImageToBytes decompresses input the same way as DecompressImage,
// returning the result as a byte slice rather than requiring a caller-supplied
// io.Writer. Handy for loading an embedded or in-memory fixture straight into
// a block.Device.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	writer := bufio.NewWriter(&buffer)
	if _, err := DecompressImage(input, writer); err != nil {
		return nil, err
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}

	result := make([]byte, buffer.Len())
	copy(result, buffer.Bytes())
	return result, nil
}

// countingWriter wraps an io.Writer and tallies how many bytes it has
// successfully accepted, since io.Writer itself exposes no such count.
type countingWriter struct {
	Writer       io.Writer
	BytesWritten int64
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	if err == nil {
		w.BytesWritten += int64(n)
	}
	return n, err
}
