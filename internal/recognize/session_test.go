package recognize_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/longscribe/internal/recognize"
	"github.com/MrWong99/longscribe/pkg/provider/asr"
	asrmock "github.com/MrWong99/longscribe/pkg/provider/asr/mock"
	diarizemock "github.com/MrWong99/longscribe/pkg/provider/diarize/mock"
	"github.com/MrWong99/longscribe/pkg/types"
)

const testRate = 16000

func testWave(durationSec float64) *types.Waveform {
	return &types.Waveform{
		Samples:    make([]float32, int(durationSec*testRate)),
		SampleRate: testRate,
	}
}

func TestNewSession_LoadFailureIsFatal(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{LoadErr: &types.ModelLoadError{Model: "tiny", Err: errors.New("missing file")}}
	_, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "tiny"})
	var loadErr *types.ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("NewSession error = %v, want ModelLoadError", err)
	}
}

func TestProcess_CachesDetectedLanguage(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{Results: []*asr.Result{
		{Language: "de", Segments: []types.Segment{{Start: 0, End: 1, Text: "hallo"}}},
		{Language: "de", Segments: []types.Segment{{Start: 0, End: 1, Text: "welt"}}},
	}}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	wave := testWave(60)
	if _, err := s.Process(context.Background(), wave, types.Chunk{Index: 0, Start: 0, End: 30}); err != nil {
		t.Fatalf("Process chunk 0: %v", err)
	}
	if got := s.Language(); got != "de" {
		t.Fatalf("cached language = %q, want %q", got, "de")
	}
	if _, err := s.Process(context.Background(), wave, types.Chunk{Index: 1, Start: 30, End: 60}); err != nil {
		t.Fatalf("Process chunk 1: %v", err)
	}

	h := engine.Handles()[0]
	calls := h.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d engine calls, want 2", len(calls))
	}
	if calls[0].LangHint != "" {
		t.Errorf("first chunk hint = %q, want auto-detect (empty)", calls[0].LangHint)
	}
	if calls[1].LangHint != "de" {
		t.Errorf("second chunk hint = %q, want cached %q", calls[1].LangHint, "de")
	}
}

func TestProcess_LanguageHintSkipsDetection(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{Results: []*asr.Result{{Language: "en"}}}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"},
		recognize.WithLanguageHint("fr"))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	if _, err := s.Process(context.Background(), testWave(10), types.Chunk{Index: 0, Start: 0, End: 10}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := engine.Handles()[0].Calls()[0].LangHint; got != "fr" {
		t.Errorf("hint = %q, want caller-provided %q", got, "fr")
	}
	if got := s.Language(); got != "fr" {
		t.Errorf("cached language = %q, want %q (hint is sticky)", got, "fr")
	}
}

func TestProcess_RebasesToAbsoluteTime(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{Results: []*asr.Result{{
		Language: "en",
		Segments: []types.Segment{{
			Start: 1, End: 3, Text: "hello world",
			Words: []types.Word{
				{Text: "hello", Start: 1, End: 1.8},
				{Text: "world", Start: 2, End: 3},
			},
		}},
	}}}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	chunk := types.Chunk{Index: 2, Start: 60, End: 90}
	res, err := s.Process(context.Background(), testWave(90), chunk)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	seg := res.Segments[0]
	if seg.Start != 61 || seg.End != 63 {
		t.Errorf("segment rebased to [%.1f, %.1f], want [61, 63]", seg.Start, seg.End)
	}
	if seg.ChunkIndex != 2 {
		t.Errorf("segment chunk index = %d, want 2", seg.ChunkIndex)
	}
	if w := seg.Words[1]; w.Start != 62 || w.End != 63 {
		t.Errorf("word rebased to [%.1f, %.1f], want [62, 63]", w.Start, w.End)
	}
}

func TestProcess_SlicesChunkRange(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{Results: []*asr.Result{{Language: "en"}}}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	if _, err := s.Process(context.Background(), testWave(60), types.Chunk{Index: 0, Start: 10, End: 40}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := engine.Handles()[0].Calls()[0].NumSamples
	if want := 30 * testRate; math.Abs(float64(got-want)) > 1 {
		t.Errorf("recognised %d samples, want ~%d (30s slice)", got, want)
	}
}

func TestProcess_FailureReturnsRecognitionError(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{
		Results: []*asr.Result{nil},
		Errs:    []error{errors.New("decode blew up")},
	}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	_, err = s.Process(context.Background(), testWave(60), types.Chunk{Index: 3, Start: 30, End: 60})
	var recErr *types.RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("Process error = %v, want RecognitionError", err)
	}
	if recErr.ChunkIndex != 3 || recErr.Start != 30 || recErr.End != 60 {
		t.Errorf("error identifies chunk %d [%.0f, %.0f], want 3 [30, 60]", recErr.ChunkIndex, recErr.Start, recErr.End)
	}
}

func TestProcess_DiarizerAssignsSpeakers(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{Results: []*asr.Result{{
		Language: "en",
		Segments: []types.Segment{{Start: 0, End: 1, Text: "hi"}},
	}}}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"},
		recognize.WithDiarizer(&diarizemock.Diarizer{Speaker: "SPEAKER_01"}))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	res, err := s.Process(context.Background(), testWave(10), types.Chunk{Index: 0, Start: 0, End: 10})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := res.Segments[0].SpeakerID; got != "SPEAKER_01" {
		t.Errorf("speaker = %q, want SPEAKER_01", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	engine := &asrmock.Engine{}
	s, err := recognize.NewSession(context.Background(), engine, asr.LoadOptions{Model: "base"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !engine.Handles()[0].Closed() {
		t.Error("handle not closed after session Close")
	}
}
