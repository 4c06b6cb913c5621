package arf

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Manifest describes how an ARF file was built.
type Manifest struct {
	BuildID   string          `json:"build_id"`
	Tool      string          `json:"tool"`
	Version   string          `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Graph     string          `json:"graph"`
	Source    string          `json:"source,omitempty"`
	Root      string          `json:"root"`
	Result    string          `json:"result"`
	Config    json.RawMessage `json:"config,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
}

// NewManifest stamps a fresh build id and creation time.
func NewManifest(tool, version string) Manifest {
	return Manifest{
		BuildID:   uuid.NewString(),
		Tool:      tool,
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}
}

func EncodeManifest(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func DecodeManifest(b []byte) (Manifest, error) {
	var m Manifest
	err := json.Unmarshal(b, &m)
	return m, err
}
