package videos

import (
	"os"
	"path/filepath"
	"testing"
)

func ftypHeader(brand string) []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p'}, []byte(brand)...)
}

func TestSniffContainer(t *testing.T) {
	tests := []struct {
		name       string
		header     []byte
		wantFormat string
		wantOK     bool
	}{
		{"mp4 isom", ftypHeader("isom"), "mp4", true},
		{"mp4 mp42", ftypHeader("mp42"), "mp4", true},
		{"quicktime brand", ftypHeader("qt  "), "mov", true},
		{"quicktime without ftyp", []byte{0, 0, 0, 8, 'w', 'i', 'd', 'e', 0, 0, 0, 0}, "mov", true},
		{"avi", []byte("RIFF\x10\x00\x00\x00AVI LIST"), "avi", true},
		{"riff wave is not video", []byte("RIFF\x10\x00\x00\x00WAVEfmt "), "", false},
		{"fragmented iso5", ftypHeader("iso5"), "mp4", true},
		{"dash iso6", ftypHeader("iso6"), "mp4", true},
		{"sony MSNV", ftypHeader("MSNV"), "mp4", true},
		{"sony XAVC", ftypHeader("XAVC"), "mp4", true},
		{"mp71", ftypHeader("mp71"), "mp4", true},
		{"3gp6", ftypHeader("3gp6"), "mp4", true},
		{"ftyp not at box type offset", []byte("ftypisom\x00\x00\x00\x00"), "", false},
		{"text file", []byte("hello, this is not a video"), "", false},
		{"too short", []byte("RIFF"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ok := SniffContainer(tt.header)
			if ok != tt.wantOK || format != tt.wantFormat {
				t.Errorf("SniffContainer() = (%q, %v), want (%q, %v)", format, ok, tt.wantFormat, tt.wantOK)
			}
		})
	}
}

func TestSniffFile(t *testing.T) {
	dir := t.TempDir()

	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, append(ftypHeader("isom"), make([]byte, 64)...), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	format, ok, err := SniffFile(video)
	if err != nil || !ok || format != "mp4" {
		t.Errorf("SniffFile(video) = (%q, %v, %v)", format, ok, err)
	}

	short := filepath.Join(dir, "short.mp4")
	if err := os.WriteFile(short, []byte("tiny"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, ok, err := SniffFile(short); err != nil || ok {
		t.Errorf("SniffFile(short) = (%v, %v), want (false, nil)", ok, err)
	}

	if _, _, err := SniffFile(filepath.Join(dir, "missing.mp4")); err == nil {
		t.Error("Expected error for missing file")
	}
}
