package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/longscribe/internal/config"
	"github.com/MrWong99/longscribe/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the configured environment can run transcriptions",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks := buildChecks(cfg)
	results := health.Run(cmd.Context(), checks...)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("FAIL  %-16s %v\n", r.Name, r.Err)
		} else {
			fmt.Printf("ok    %s\n", r.Name)
		}
	}
	if !health.OK(results) {
		return fmt.Errorf("%d of %d checks failed", countFailed(results), len(results))
	}
	return nil
}

// buildChecks derives the relevant checks from the configuration: the ffmpeg
// pair always, model weights for local engines, the database when configured.
func buildChecks(cfg *config.Config) []health.Check {
	ffmpeg, ffprobe := cfg.Media.FFmpegPath, cfg.Media.FFprobePath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	checks := []health.Check{
		health.Binary("ffmpeg", ffmpeg),
		health.Binary("ffprobe", ffprobe),
	}
	for eng, section := &cfg.Engine, "model"; eng != nil; eng = eng.Fallback {
		if (eng.Name == "" || eng.Name == config.EngineWhisper) && eng.Model != "" {
			checks = append(checks, health.File(section, eng.Model))
		}
		section = "fallback " + section
	}
	if cfg.Storage.PostgresDSN != "" {
		checks = append(checks, health.Postgres("postgres", cfg.Storage.PostgresDSN))
	}
	return checks
}

func countFailed(results []health.Result) int {
	var n int
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
