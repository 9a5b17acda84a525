package videos

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// sniffLength is how many leading bytes are inspected
const sniffLength = 12

// quickTimeAtoms can open a QuickTime file that was written without an ftyp box
var quickTimeAtoms = [][]byte{
	[]byte("moov"),
	[]byte("mdat"),
	[]byte("wide"),
	[]byte("free"),
	[]byte("skip"),
}

// SniffContainer identifies the container from the leading bytes of a file.
// It returns "mp4", "mov" or "avi", or ok=false if the data is not a known video container.
func SniffContainer(header []byte) (format string, ok bool) {
	if len(header) < sniffLength {
		return "", false
	}

	if bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("AVI ")) {
		return "avi", true
	}

	box := header[4:8]
	if bytes.Equal(box, []byte("ftyp")) {
		// brands vary widely between muxers and cameras; OpenCV decides the rest
		if bytes.Equal(header[8:12], []byte("qt  ")) {
			return "mov", true
		}
		return "mp4", true
	}

	for _, atom := range quickTimeAtoms {
		if bytes.Equal(box, atom) {
			return "mov", true
		}
	}

	return "", false
}

// SniffFile reads the first bytes of path and runs SniffContainer on them
func SniffFile(path string) (string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to open file for sniffing: %w", err)
	}
	defer file.Close()

	header := make([]byte, sniffLength)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", false, fmt.Errorf("failed to read file header: %w", err)
	}

	format, ok := SniffContainer(header[:n])
	return format, ok, nil
}
