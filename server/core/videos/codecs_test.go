package videos

import "testing"

func TestHostClassFor(t *testing.T) {
	tests := []struct {
		goos string
		want HostClass
	}{
		{"darwin", HostDarwin},
		{"windows", HostWindows},
		{"linux", HostOther},
		{"freebsd", HostOther},
	}

	for _, tt := range tests {
		if got := HostClassFor(tt.goos); got != tt.want {
			t.Errorf("HostClassFor(%q) = %v, want %v", tt.goos, got, tt.want)
		}
	}
}

func TestCodecFor(t *testing.T) {
	if got := CodecFor(HostDarwin); got != "avc1" {
		t.Errorf("Expected avc1 on darwin, got %q", got)
	}
	if got := CodecFor(HostWindows); got != "H264" {
		t.Errorf("Expected H264 on windows, got %q", got)
	}
	if got := CodecFor(HostOther); got != "mp4v" {
		t.Errorf("Expected mp4v elsewhere, got %q", got)
	}
	if got := CodecFor(HostClass(42)); got != "mp4v" {
		t.Errorf("Expected unknown host class to fall back to mp4v, got %q", got)
	}
}

func TestFourCC(t *testing.T) {
	code, err := FourCC("mp4v")
	if err != nil {
		t.Fatalf("FourCC(mp4v) failed: %v", err)
	}
	// 'm' | 'p'<<8 | '4'<<16 | 'v'<<24
	if code != 0x7634706d {
		t.Errorf("FourCC(mp4v) = %#x, want %#x", code, 0x7634706d)
	}

	invalid := []CodecTag{"", "mp4", "mp4vv", "mp4\x00"}
	for _, tag := range invalid {
		if _, err := FourCC(tag); err == nil {
			t.Errorf("FourCC(%q) should fail", string(tag))
		}
	}
}

func TestProbeCodecs(t *testing.T) {
	result := ProbeCodecs([]CodecTag{"mp4v", "XVID", "h26"})

	if len(result) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(result))
	}
	if !result["mp4v"] || !result["XVID"] {
		t.Errorf("Expected valid tags to be available: %v", result)
	}
	if result["h26"] {
		t.Error("Expected malformed tag to be unavailable")
	}

	for _, tag := range ProbeCandidates {
		if !ProbeCodecs(ProbeCandidates)[string(tag)] {
			t.Errorf("Built-in candidate %q should be constructible", tag)
		}
	}
}

func TestValidateExtension(t *testing.T) {
	tests := []struct {
		filename string
		wantExt  string
		wantErr  bool
	}{
		{"clip.mp4", ".mp4", false},
		{"CLIP.MOV", ".mov", false},
		{"holiday.Avi", ".avi", false},
		{"notes.txt", "", true},
		{"archive.mp4.zip", "", true},
		{"noextension", "", true},
	}

	for _, tt := range tests {
		ext, err := ValidateExtension(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateExtension(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			continue
		}
		if err != nil && !IsInvalidInputError(err) {
			t.Errorf("ValidateExtension(%q) should return an invalid input error, got %v", tt.filename, err)
		}
		if ext != tt.wantExt {
			t.Errorf("ValidateExtension(%q) = %q, want %q", tt.filename, ext, tt.wantExt)
		}
	}
}

func TestMimeTypeForExtension(t *testing.T) {
	tests := map[string]string{
		".mp4": "video/mp4",
		"avi":  "video/x-msvideo",
		".MOV": "video/quicktime",
		".jpg": "image/jpeg",
		".xyz": "video/mp4",
	}
	for ext, want := range tests {
		if got := MimeTypeForExtension(ext); got != want {
			t.Errorf("MimeTypeForExtension(%q) = %q, want %q", ext, got, want)
		}
	}
}
