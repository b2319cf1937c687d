package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/prbuf/pkg/codec"
	"github.com/ssargent/prbuf/pkg/prbuf"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind string
	Port int
	// APIKey protects /api/v1. Empty disables authentication.
	APIKey string
	// MaxBodyBytes caps POST /entries bodies; 0 means 1 MiB.
	MaxBodyBytes int
	// Registry receives the server's metrics and backs /metrics. Nil means
	// a fresh registry with the Go and process collectors.
	Registry *prometheus.Registry
}

// EntryStore is the collector as seen by the server.
type EntryStore interface {
	Append(kind codec.Kind, body []byte) (ksuid.KSUID, error)
	Snapshot() []byte
	Stats() prbuf.Stats
	Count() int
	MaxBody() int
}

// AppendResponse is returned by POST /entries
type AppendResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

// StatsResponse is returned by GET /stats
type StatsResponse struct {
	Size      uint32 `json:"size"`
	Capacity  uint32 `json:"capacity"`
	Used      uint32 `json:"used"`
	Begin     uint32 `json:"begin"`
	End       uint32 `json:"end"`
	Evictions uint64 `json:"evictions"`
	Records   int    `json:"records"`
	MaxBody   int    `json:"max_body"`
}

// VerifyResponse is returned by GET /verify
type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Records int    `json:"records"`
	Invalid int    `json:"invalid"`
}
