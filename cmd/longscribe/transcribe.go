package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/MrWong99/longscribe/internal/config"
	"github.com/MrWong99/longscribe/internal/job"
	"github.com/MrWong99/longscribe/internal/observe"
	"github.com/MrWong99/longscribe/internal/segment"
	"github.com/MrWong99/longscribe/internal/store/postgres"
	"github.com/MrWong99/longscribe/pkg/provider/align/uniform"
	"github.com/MrWong99/longscribe/pkg/provider/vad"
	"github.com/MrWong99/longscribe/pkg/provider/vad/energy"
)

var (
	flagModel     string
	flagLanguage  string
	flagTranslate bool
	flagDiarize   bool
	flagStrategy  string
	flagWindow    float64
	flagOverlap   float64
	flagOutputDir string
	flagStdout    bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <media-file>",
	Short: "Transcribe a media file into SRT captions and plain text",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

func init() {
	f := transcribeCmd.Flags()
	f.StringVarP(&flagModel, "model", "m", "", "model weights path (whisper) or model name (openai); overrides the config")
	f.StringVarP(&flagLanguage, "language", "l", "", "ISO 639-1 language hint; empty auto-detects")
	f.BoolVar(&flagTranslate, "translate", false, "translate the transcript to English")
	f.BoolVar(&flagDiarize, "diarize", false, "attribute segments to speakers")
	f.StringVarP(&flagStrategy, "strategy", "s", "", "chunking strategy: auto, time, vad, silence; overrides the config")
	f.Float64Var(&flagWindow, "window-sec", 0, "target chunk length in seconds; 0 uses the config or 30")
	f.Float64Var(&flagOverlap, "overlap-sec", 0, "chunk overlap in seconds; 0 uses the config or 10")
	f.StringVarP(&flagOutputDir, "output-dir", "o", "", "directory for output files; defaults to the media file's directory")
	f.BoolVar(&flagStdout, "stdout", false, "print the plain-text transcript to stdout instead of writing files")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	// Providers.
	reg := config.DefaultRegistry()
	engine, err := reg.CreateEngine(cfg.Engine)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	detector, err := reg.CreateDetector("energy", cfg.VAD)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	mgrOpts := []job.ManagerOption{
		job.WithDetector(detector),
		job.WithAligner(uniform.New()),
	}
	if cfg.Jobs.MaxConcurrent > 0 {
		mgrOpts = append(mgrOpts, job.WithMaxConcurrent(cfg.Jobs.MaxConcurrent))
	}
	diarize := flagDiarize || cfg.Diarization.Enabled
	if diarize {
		d, err := reg.CreateDiarizer("pause", cfg.Diarization)
		if err != nil {
			return fmt.Errorf("create diarizer: %w", err)
		}
		mgrOpts = append(mgrOpts, job.WithDiarizer(d))
	}
	mgr := job.NewManager(engine, newMediaLoader(cfg.Media), mgrOpts...)

	// Job options: flags override the config where given.
	opts := job.Options{
		Model:        flagModel,
		LanguageHint: flagLanguage,
		Translate:    flagTranslate,
		Diarize:      diarize,
		WindowSec:    flagWindow,
		OverlapSec:   flagOverlap,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rchunk %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
	if opts.Model == "" {
		opts.Model = cfg.Engine.Model
	}
	if opts.WindowSec == 0 {
		opts.WindowSec = cfg.Chunking.WindowSec
	}
	if opts.OverlapSec == 0 {
		opts.OverlapSec = cfg.Chunking.OverlapSec
	}
	opts.Strategy, err = buildStrategy(flagStrategy, cfg, detector)
	if err != nil {
		return err
	}

	res, err := mgr.Run(ctx, mediaPath, opts)
	if err != nil {
		return err
	}
	for _, ce := range res.PerChunkErrors {
		slog.Warn("chunk failed, content omitted",
			"chunk", ce.ChunkIndex,
			"start_sec", ce.Start,
			"end_sec", ce.End,
			"err", ce.Message)
	}

	if flagStdout {
		fmt.Println(res.Outputs.PlainText)
	} else if err := writeOutputs(mediaPath, res); err != nil {
		return err
	}

	if cfg.Storage.PostgresDSN != "" {
		if err := persist(ctx, cfg.Storage.PostgresDSN, mediaPath, res); err != nil {
			return err
		}
	}

	slog.Info("transcription finished",
		"language", res.Language,
		"chunks", res.NumChunks,
		"failed_chunks", len(res.PerChunkErrors),
		"strategy", res.Strategy,
		"realtime_factor", fmt.Sprintf("%.1fx", res.RealtimeFactor))
	return nil
}

// buildStrategy resolves the strategy name from the flag or config into a
// chunk planner. Empty means auto.
func buildStrategy(flag string, cfg *config.Config, detector vad.Detector) (segment.Strategy, error) {
	name := config.StrategyName(flag)
	if name == "" {
		name = cfg.Chunking.Strategy
	}
	switch name {
	case "", config.StrategyAuto:
		return segment.Auto(detector), nil
	case config.StrategyTime:
		return segment.Time(), nil
	case config.StrategyVAD:
		return segment.VAD(detector), nil
	case config.StrategySilence:
		return segment.Silence(energyOptions(cfg.VAD)...), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q; valid values: auto, time, vad, silence", name)
	}
}

func energyOptions(cfg config.VADConfig) []energy.Option {
	var opts []energy.Option
	if cfg.Threshold > 0 {
		opts = append(opts, energy.WithThreshold(cfg.Threshold))
	}
	if cfg.FrameMs > 0 {
		opts = append(opts, energy.WithFrameMs(cfg.FrameMs))
	}
	if cfg.MinSpeechMs > 0 {
		opts = append(opts, energy.WithMinSpeechMs(cfg.MinSpeechMs))
	}
	if cfg.MinSilenceMs > 0 {
		opts = append(opts, energy.WithMinSilenceMs(cfg.MinSilenceMs))
	}
	return opts
}

// writeOutputs writes the four encodings next to the media file (or into
// --output-dir): <base>.json, <base>.words.srt, <base>.srt, and <base>.txt.
func writeOutputs(mediaPath string, res *job.Result) error {
	dir := flagOutputDir
	if dir == "" {
		dir = filepath.Dir(mediaPath)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %q: %w", dir, err)
	}
	name := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	base := filepath.Join(dir, name)

	resultJSON, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	files := map[string][]byte{
		base + ".json":      append(resultJSON, '\n'),
		base + ".words.srt": []byte(res.Outputs.WordCaptions),
		base + ".srt":       []byte(res.Outputs.PhraseCaptions),
		base + ".txt":       []byte(res.Outputs.PlainText + "\n"),
	}
	for path, data := range files {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %q: %w", path, err)
		}
		slog.Info("output written", "path", path)
	}
	return nil
}

// persist stores the result in PostgreSQL, creating the schema when needed.
func persist(ctx context.Context, dsn, mediaPath string, res *job.Result) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	st := postgres.New(pool)
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	if err := st.Save(ctx, mediaPath, res); err != nil {
		return err
	}
	slog.Info("result persisted", "job_id", res.JobID)
	return nil
}
