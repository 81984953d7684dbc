package transcriber

import (
	"context"
	"net/http"
	"time"

	"murmur/audio"
)

// Languages the pipeline accepts. "auto" lets the backend detect.
var Languages = []string{"auto", "ru", "en", "pl", "de", "es"}

func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration

	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

// AudioStats describes the uploaded payload for the diagnostics log.
type AudioStats struct {
	LengthS   float64
	RawKB     float64
	EncodedKB float64
	EncodeMs  float64
}

type Result struct {
	Text      string
	Language  string // backend-reported, may differ from the request under "auto"
	Duration  float64
	RateLimit string // "remaining/limit" or empty
	Network   *NetworkMetrics
	Audio     AudioStats
}

// Transcriber turns one finished capture into text. Transcribe blocks for
// the duration of the upload and decode; callers treat any error as
// terminal for the utterance.
type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	Transcribe(ctx context.Context, buf *audio.Buffer) (*Result, error)
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
