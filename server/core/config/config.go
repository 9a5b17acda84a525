package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DeliveryAttachment = "attachment"
	DeliveryInline     = "inline"
)

// Config holds the configuration for the annotation server
type Config struct {
	ServerAddr     string   `json:"server_addr"`
	ServerPort     int      `json:"server_port"`
	AllowedOrigins []string `json:"allowed_origins"`
	TrustedProxies []string `json:"trusted_proxies,omitempty"`

	UploadsDir   string `json:"uploads_dir"`
	OutputsDir   string `json:"outputs_dir"`
	DatabasePath string `json:"database_path"`
	LogPath      string `json:"log_path"`
	LogLevel     string `json:"log_level"`

	// OutputDelivery is either "attachment" or "inline"
	OutputDelivery string `json:"output_delivery"`
	// SniffUploads rejects uploads whose leading bytes are not a known video container
	SniffUploads bool `json:"sniff_uploads"`
	// CodecOverride replaces the host based codec tag when set
	CodecOverride string `json:"codec_override,omitempty"`

	Detection     DetectionSettings     `json:"detection"`
	WebCompatible WebCompatibleSettings `json:"web_compatible"`
	Retention     RetentionSettings     `json:"retention"`
}

// DetectionSettings configures the object detection model
type DetectionSettings struct {
	ModelPath           string  `json:"model_path"`
	ClassNamesPath      string  `json:"class_names_path,omitempty"`
	InputSize           int     `json:"input_size"`
	ConfidenceThreshold float32 `json:"confidence_threshold"`
	NMSThreshold        float32 `json:"nms_threshold"`
}

// WebCompatibleSettings configures the optional H.264 re-encode of finished outputs
type WebCompatibleSettings struct {
	Enabled      bool   `json:"enabled"`
	VideoCodec   string `json:"video_codec"`
	VideoBitrate string `json:"video_bitrate"`
}

// RetentionSettings controls expiry of processed outputs
type RetentionSettings struct {
	MaxAge        Duration `json:"max_age"`
	SweepInterval Duration `json:"sweep_interval"`
}

// Duration is a time.Duration that reads and writes as a Go duration string ("24h")
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"24h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:     "0.0.0.0",
		ServerPort:     8000,
		AllowedOrigins: []string{"http://localhost:3000"},
		UploadsDir:     "uploads",
		OutputsDir:     "outputs",
		DatabasePath:   "annotator.db",
		LogPath:        "logs",
		LogLevel:       "info",
		OutputDelivery: DeliveryAttachment,
		SniffUploads:   true,
		Detection: DetectionSettings{
			ModelPath:           "runs/detect/train3/weights/best.onnx",
			InputSize:           640,
			ConfidenceThreshold: 0.25,
			NMSThreshold:        0.45,
		},
		WebCompatible: WebCompatibleSettings{
			Enabled:      false,
			VideoCodec:   "libx264",
			VideoBitrate: "2000k",
		},
		Retention: RetentionSettings{
			MaxAge:        Duration(7 * 24 * time.Hour),
			SweepInterval: Duration(time.Hour),
		},
	}
}

// LoadConfig loads the configuration from a JSON file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides settings from ANNOTATOR_* environment variables.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ANNOTATOR_SERVER_ADDR"); ok {
		c.ServerAddr = v
	}
	if v, ok := lookup("ANNOTATOR_SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ANNOTATOR_SERVER_PORT %q: %w", v, err)
		}
		c.ServerPort = port
	}
	if v, ok := lookup("ANNOTATOR_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("ANNOTATOR_MODEL_PATH"); ok {
		c.Detection.ModelPath = v
	}
	if v, ok := lookup("ANNOTATOR_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("ANNOTATOR_OUTPUT_DELIVERY"); ok {
		c.OutputDelivery = v
	}
	if v, ok := lookup("ANNOTATOR_CODEC"); ok {
		c.CodecOverride = v
	}
	if v, ok := lookup("ANNOTATOR_WEB_COMPATIBLE"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ANNOTATOR_WEB_COMPATIBLE %q: %w", v, err)
		}
		c.WebCompatible.Enabled = enabled
	}
	return nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	if c.UploadsDir == "" || c.OutputsDir == "" {
		return fmt.Errorf("uploads_dir and outputs_dir are required")
	}
	if c.UploadsDir == c.OutputsDir {
		return fmt.Errorf("uploads_dir and outputs_dir must differ")
	}
	if c.OutputDelivery != DeliveryAttachment && c.OutputDelivery != DeliveryInline {
		return fmt.Errorf("invalid output delivery %q: expected %q or %q", c.OutputDelivery, DeliveryAttachment, DeliveryInline)
	}
	if c.CodecOverride != "" && len(c.CodecOverride) != 4 {
		return fmt.Errorf("codec override must be a four character code, got %q", c.CodecOverride)
	}
	if c.Detection.InputSize <= 0 {
		return fmt.Errorf("invalid detection input size: %d", c.Detection.InputSize)
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be within [0, 1], got %v", c.Detection.ConfidenceThreshold)
	}
	if c.Detection.NMSThreshold < 0 || c.Detection.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be within [0, 1], got %v", c.Detection.NMSThreshold)
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("retention max age cannot be negative")
	}
	if c.Retention.MaxAge > 0 && c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("retention sweep interval must be positive when max age is set")
	}
	return nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}

	return nil
}
