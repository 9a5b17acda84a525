package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/yeti47/annotator/server/core/config"
)

const (
	testVideoFrames = 20
	testVideoRate   = 10
)

// TestE2E builds the server, starts it against a generated video and checks
// the whole upload flow. It needs ffmpeg and OpenCV and only runs when
// ANNOTATOR_E2E is set. ANNOTATOR_E2E_MODEL points at a real model; without
// it the server runs in degraded mode and uploads must be rejected.
func TestE2E(t *testing.T) {
	if os.Getenv("ANNOTATOR_E2E") == "" {
		t.Skip("set ANNOTATOR_E2E=1 to run end-to-end tests")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}

	workDir := t.TempDir()
	modelPath := os.Getenv("ANNOTATOR_E2E_MODEL")
	if modelPath == "" {
		modelPath = filepath.Join(workDir, "missing.onnx")
	}

	t.Log("Building server...")
	binary := filepath.Join(workDir, "annotation-server")
	build := exec.Command("go", "build", "-o", binary, "../../server/annotation-server")
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build server: %v\n%s", err, output)
	}

	t.Log("Generating test video...")
	videoPath := filepath.Join(workDir, "test.mp4")
	if err := generateTestVideo(videoPath); err != nil {
		t.Fatalf("Failed to generate test video: %v", err)
	}

	port, err := freePort()
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	configPath, err := writeServerConfig(workDir, modelPath, port)
	if err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	server := exec.Command(binary, "-config", configPath)
	server.Dir = workDir
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- server.Wait() }()

	defer func() {
		server.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			server.Process.Kill()
			t.Error("Server failed to stop gracefully")
		}
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	modelLoaded := waitForHealth(t, baseURL)

	resp, err := uploadVideo(baseURL, videoPath)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	defer resp.Body.Close()

	if !modelLoaded {
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("Expected 500 without a model, got %d", resp.StatusCode)
		}
		t.Log("Model not loaded, degraded mode verified")
		return
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("X-Frame-Count"); got != strconv.Itoa(testVideoFrames) {
		t.Errorf("Expected %d frames, got %s", testVideoFrames, got)
	}

	storedName := resp.Header.Get("X-Output-Filename")
	for _, path := range []string{"/outputs/" + storedName, "/outputs/" + storedName + "/thumbnail"} {
		r, err := http.Get(baseURL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		r.Body.Close()
		if r.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, r.StatusCode)
		}
	}

	entries, err := os.ReadDir(filepath.Join(workDir, "uploads"))
	if err != nil {
		t.Fatalf("Failed to read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no scratch files after upload, found %d", len(entries))
	}
}

func generateTestVideo(path string) error {
	source := fmt.Sprintf("testsrc=duration=%d:size=320x240:rate=%d", testVideoFrames/testVideoRate, testVideoRate)
	cmd := exec.Command("ffmpeg", "-y", "-f", "lavfi", "-i", source, "-c:v", "mpeg4", path)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, output)
	}
	return nil
}

func freePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

func writeServerConfig(dir, modelPath string, port int) (string, error) {
	cfg := config.DefaultConfig()
	cfg.ServerAddr = "127.0.0.1"
	cfg.ServerPort = port
	cfg.UploadsDir = filepath.Join(dir, "uploads")
	cfg.OutputsDir = filepath.Join(dir, "outputs")
	cfg.DatabasePath = filepath.Join(dir, "annotator.db")
	cfg.LogPath = filepath.Join(dir, "logs")
	cfg.Detection.ModelPath = modelPath

	path := filepath.Join(dir, "config.json")
	if err := cfg.SaveConfig(path); err != nil {
		return "", err
	}
	return path, nil
}

// waitForHealth polls /health until the server answers and returns model_loaded
func waitForHealth(t *testing.T, baseURL string) bool {
	for n := 0; n < 60; n++ {
		resp, err := http.Get(baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			var payload struct {
				ModelLoaded bool `json:"model_loaded"`
			}
			err := json.NewDecoder(resp.Body).Decode(&payload)
			resp.Body.Close()
			if err != nil {
				t.Fatalf("Failed to decode health response: %v", err)
			}
			return payload.ModelLoaded
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatal("Server did not become ready within 30 seconds")
	return false
}

func uploadVideo(baseURL, videoPath string) (*http.Response, error) {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(videoPath))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return http.Post(baseURL+"/upload_video/", writer.FormDataContentType(), &body)
}
