// Package openai provides a recognition engine backed by the OpenAI audio
// transcription API.
//
// It is the remote alternative to the local whisper.cpp engine: no weights
// on disk, no accelerator memory, but per-request network latency and the
// provider's upload limits. Audio slices are encoded as 16-bit PCM WAV and
// submitted with verbose JSON output and word-level timestamp granularity so
// the rest of the pipeline sees the same word/segment shape as the native
// engine.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/longscribe/pkg/provider/asr"
	"github.com/MrWong99/longscribe/pkg/types"
)

// Compile-time assertion that Engine implements asr.Engine.
var _ asr.Engine = (*Engine)(nil)

// sampleRate is the PCM rate the pipeline delivers and the WAV encoder
// declares.
const sampleRate = 16000

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// compatible self-hosted servers and for tests.
func WithBaseURL(url string) Option {
	return func(e *Engine) { e.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout. Defaults to 5 minutes, sized
// for 30-second audio chunks on slow uplinks.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// Engine implements asr.Engine against the OpenAI transcription endpoint.
// Safe for concurrent use; handles share the underlying HTTP client.
type Engine struct {
	client  oai.Client
	baseURL string
	timeout time.Duration
}

// New constructs an Engine. apiKey must not be empty.
func New(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	e := &Engine{timeout: 5 * time.Minute}
	for _, o := range opts {
		o(e)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: e.timeout}),
	}
	if e.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(e.baseURL))
	}
	e.client = oai.NewClient(reqOpts...)
	return e, nil
}

// Load validates the model name and returns a handle. No remote call is made
// until the first Recognize; a handle holds no server-side resources, so
// Close is a no-op kept for the asr.Handle contract.
func (e *Engine) Load(_ context.Context, opts asr.LoadOptions) (asr.Handle, error) {
	if opts.Model == "" {
		return nil, &types.ModelLoadError{Model: opts.Model, Err: errors.New("openai: model name must not be empty")}
	}
	return &handle{client: e.client, model: opts.Model, language: opts.Language}, nil
}

// ---- handle -----------------------------------------------------------------

type handle struct {
	client   oai.Client
	model    string
	language string
}

// Compile-time assertion that handle satisfies asr.Handle.
var _ asr.Handle = (*handle)(nil)

// verboseTranscription mirrors the verbose_json response shape. The SDK's
// typed Transcription only exposes the plain-text fields, so the raw body is
// decoded a second time to reach segments and word timings.
type verboseTranscription struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Recognize encodes samples as WAV, submits them for transcription, and
// converts the verbose response into the provider-neutral result shape.
func (h *handle) Recognize(ctx context.Context, samples []float32, langHint string) (*asr.Result, error) {
	lang := langHint
	if lang == "" {
		lang = h.language
	}

	params := oai.AudioTranscriptionNewParams{
		File:                   oai.File(bytes.NewReader(encodeWAV(samples, sampleRate)), "audio.wav", "audio/wav"),
		Model:                  oai.AudioModel(h.model),
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word", "segment"},
	}
	if lang != "" {
		params.Language = oai.String(lang)
	}

	resp, err := h.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: transcription request: %w", err)
	}

	var verbose verboseTranscription
	if err := json.Unmarshal([]byte(resp.RawJSON()), &verbose); err != nil {
		return nil, fmt.Errorf("openai: parse verbose response: %w", err)
	}

	return convertVerbose(&verbose, lang), nil
}

// Close is a no-op: remote handles hold no local resources.
func (h *handle) Close() error { return nil }

// convertVerbose maps the verbose response onto segments with nested words.
// The API returns words as a flat list, so each word is attached to the
// segment whose time range contains its midpoint. Word confidence is derived
// from the owning segment's average log-probability.
func convertVerbose(v *verboseTranscription, fallbackLang string) *asr.Result {
	segments := make([]types.Segment, 0, len(v.Segments))
	for _, s := range v.Segments {
		conf := math.Exp(s.AvgLogprob)
		if conf > 1 {
			conf = 1
		}
		seg := types.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		}
		for _, w := range v.Words {
			mid := (w.Start + w.End) / 2
			if mid >= s.Start && mid < s.End {
				seg.Words = append(seg.Words, types.Word{
					Text:       w.Word,
					Start:      w.Start,
					End:        w.End,
					Confidence: conf,
				})
			}
		}
		if seg.Text == "" && len(seg.Words) == 0 {
			continue
		}
		segments = append(segments, seg)
	}

	lang := v.Language
	if lang == "" {
		lang = fallbackLang
	}
	return &asr.Result{Segments: segments, Language: lang}
}
