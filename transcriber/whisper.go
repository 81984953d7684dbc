package transcriber

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"murmur/audio"
	"murmur/encoder"
)

const (
	DefaultEndpoint = "https://api.groq.com/openai/v1/audio/transcriptions"
	DefaultModel    = "whisper-large-v3-turbo"
)

type WhisperConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Format   string // "flac" or "wav"
	Language string
}

// Whisper talks to any whisper-compatible multipart transcription
// endpoint (Groq, OpenAI, a local server).
type Whisper struct {
	client   *TracedClient
	endpoint string
	model    string
	apiKey   string
	format   string

	mu   sync.Mutex
	lang string
}

func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription API key not set (MURMUR_API_KEY)")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Format == "" {
		cfg.Format = "flac"
	}
	if cfg.Language == "" {
		cfg.Language = "auto"
	}
	if !ValidLanguage(cfg.Language) {
		return nil, fmt.Errorf("unsupported language %q", cfg.Language)
	}
	return &Whisper{
		client:   NewTracedClient(),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		format:   cfg.Format,
		lang:     cfg.Language,
	}, nil
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) SetLanguage(lang string) {
	w.mu.Lock()
	w.lang = lang
	w.mu.Unlock()
}

func (w *Whisper) GetLanguage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lang
}

// Warm opens the TLS connection ahead of the first upload.
func (w *Whisper) Warm() {
	go w.client.Warm(w.endpoint)
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func (w *Whisper) Transcribe(ctx context.Context, buf *audio.Buffer) (*Result, error) {
	encodeStart := time.Now()
	payload, err := encodePCM(buf.PCM, w.format)
	if err != nil {
		return nil, fmt.Errorf("encoding audio: %w", err)
	}
	encodeTime := time.Since(encodeStart)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+w.format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, err
	}

	writer.WriteField("model", w.model)
	writer.WriteField("response_format", "verbose_json")
	if lang := w.GetLanguage(); lang != "auto" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var wResp whisperResponse
	if err := json.Unmarshal(resp.Body, &wResp); err != nil {
		return nil, fmt.Errorf("transcription response parse error: %w", err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:      strings.TrimSpace(wResp.Text),
		Language:  wResp.Language,
		Duration:  wResp.Duration,
		RateLimit: remaining + "/" + limit,
		Network:   resp.Metrics,
		Audio: AudioStats{
			LengthS:   buf.Duration().Seconds(),
			RawKB:     float64(len(buf.PCM)) / 1024,
			EncodedKB: float64(len(payload)) / 1024,
			EncodeMs:  float64(encodeTime.Milliseconds()),
		},
	}, nil
}

func encodePCM(pcm []byte, format string) ([]byte, error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	for len(samples) > 0 {
		n := min(len(samples), encoder.BlockSize)
		if err := enc.EncodeBlock(samples[:n]); err != nil {
			return nil, err
		}
		samples = samples[n:]
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
