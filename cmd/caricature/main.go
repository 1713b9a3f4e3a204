package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catpea/caricature/internal/catalog"
	"github.com/catpea/caricature/internal/config"
	"github.com/catpea/caricature/internal/ffmpeg"
	"github.com/catpea/caricature/internal/logging"
	"github.com/catpea/caricature/internal/loudness"
	"github.com/catpea/caricature/internal/pipeline"
	"github.com/catpea/caricature/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "caricature",
	Short:   "caricature - audio-driven character animation",
	Long:    "Animates a character's mouth frames against an audio track's loudness and encodes the result standalone or composited onto a video.",
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./caricature.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	renderAudio       string
	renderOverlay     string
	renderPosition    string
	renderMargin      int
	renderCharacter   string
	renderFrames      string
	renderSize        int
	renderRotation    float64
	renderGlitch      int
	renderThreshold   float64
	renderOutput      string
	renderSeed        int64
	renderKeepScratch bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an animation from an audio track or onto a base video",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		opts := pipeline.Options{
			Audio:        renderAudio,
			OverlayVideo: renderOverlay,
			Position:     renderPosition,
			Margin:       renderMargin,
			Character:    renderCharacter,
			FramesDir:    renderFrames,
			Size:         renderSize,
			MaxRotation:  renderRotation,
			Glitch:       renderGlitch,
			Threshold:    renderThreshold,
			Output:       renderOutput,
			Seed:         renderSeed,
			KeepScratch:  renderKeepScratch,
		}
		applyConfig(cmd, cfg, &opts)

		job, err := pipeline.NewJob(opts)
		if err != nil {
			return err
		}

		tools, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		pipe, err := pipeline.New(log.Logger, cfg, tools)
		if err != nil {
			return err
		}

		if err := pipe.Run(cmd.Context(), job); err != nil {
			var encErr *ffmpeg.EncodeError
			if errors.As(err, &encErr) && encErr.Diagnostic != "" {
				log.Error().Str("output", encErr.Output).Msg(encErr.Diagnostic)
			}
			return err
		}

		return nil
	},
}

func init() {
	flags := renderCmd.Flags()
	flags.StringVar(&renderAudio, "audio", "", "audio track to animate against")
	flags.StringVar(&renderOverlay, "overlay", "", "base video to composite the animation onto")
	flags.StringVar(&renderPosition, "position", "bottom-right", "overlay corner: top-left, top-right, bottom-left, bottom-right")
	flags.IntVar(&renderMargin, "margin", 20, "overlay margin in pixels")
	flags.StringVarP(&renderCharacter, "character", "c", "", "character name, the frame filename prefix")
	flags.StringVarP(&renderFrames, "frames", "f", "", "directory holding the character's mouth frames")
	flags.IntVar(&renderSize, "size", 320, "square frame edge in pixels")
	flags.Float64Var(&renderRotation, "max-rotation", 0, "random tilt range in degrees, 0 disables")
	flags.IntVar(&renderGlitch, "glitch", 0, "glitch intensity 0-3")
	flags.Float64Var(&renderThreshold, "threshold", -40, "loudness threshold in LUFS for an open mouth")
	flags.StringVarP(&renderOutput, "output", "o", "", "output video path")
	flags.Int64Var(&renderSeed, "seed", 0, "schedule seed, 0 draws from the clock")
	flags.BoolVar(&renderKeepScratch, "keep-scratch", false, "keep the scratch directory when a run fails")
}

// applyConfig fills in every render option the user left untouched from
// the loaded configuration.
func applyConfig(cmd *cobra.Command, cfg *config.Config, opts *pipeline.Options) {
	flags := cmd.Flags()
	if !flags.Changed("size") {
		opts.Size = cfg.Animation.Size
	}
	if !flags.Changed("threshold") {
		opts.Threshold = cfg.Animation.Threshold
	}
	if !flags.Changed("max-rotation") {
		opts.MaxRotation = cfg.Animation.MaxRotation
	}
	if !flags.Changed("glitch") {
		opts.Glitch = cfg.Animation.GlitchLevel
	}
	if !flags.Changed("position") {
		opts.Position = cfg.Overlay.Position
	}
	if !flags.Changed("margin") {
		opts.Margin = cfg.Overlay.Margin
	}
}

var analyzeThreshold float64

var analyzeCmd = &cobra.Command{
	Use:   "analyze [media file]",
	Short: "Probe a media file and report its loudness envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		threshold := analyzeThreshold
		if !cmd.Flags().Changed("threshold") {
			threshold = cfg.Animation.Threshold
		}

		tools, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		info, err := tools.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		log.Info().
			Str("path", info.Path).
			Float64("duration", info.Duration).
			Int("width", info.Width).
			Int("height", info.Height).
			Bool("audio", info.HasAudio).
			Msg("probe complete")

		if !info.HasAudio {
			return &loudness.InputError{Path: args[0], Reason: "no audio stream to analyze"}
		}

		samples, err := tools.ExtractLoudness(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		timeline, err := loudness.NewTimeline(samples)
		if err != nil {
			return err
		}

		quietest, loudest := math.Inf(1), math.Inf(-1)
		var open int
		for _, s := range timeline.Samples() {
			if s.Level < quietest {
				quietest = s.Level
			}
			if s.Level > loudest {
				loudest = s.Level
			}
			if s.Level > threshold {
				open++
			}
		}

		log.Info().
			Int("samples", timeline.Len()).
			Float64("span", timeline.Span()).
			Float64("quietest", quietest).
			Float64("loudest", loudest).
			Msg("loudness envelope extracted")

		log.Info().
			Float64("threshold", threshold).
			Int("open", open).
			Int("closed", timeline.Len()-open).
			Msg("mouth split at threshold")

		return nil
	},
}

var framesDir string

var framesCmd = &cobra.Command{
	Use:   "frames [character]",
	Short: "List a character's mouth frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := catalog.Discover(framesDir, args[0])
		if err != nil {
			return err
		}

		for _, frame := range append(set.Closed, set.Open...) {
			log.Info().
				Str("mouth", frame.Mouth.String()).
				Str("path", frame.Path).
				Msg("frame")
		}

		log.Info().
			Int("closed", len(set.Closed)).
			Int("open", len(set.Open)).
			Msg("catalog assembled")

		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the built-in defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "caricature.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("config file %s already exists", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}

		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", -40, "loudness threshold in LUFS for the open/closed split")
	framesCmd.Flags().StringVarP(&framesDir, "frames", "f", ".", "directory holding the character's mouth frames")
	configCmd.AddCommand(configInitCmd)
}

// newExecutor builds the ffmpeg toolchain from the loaded configuration.
func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	opts := []ffmpeg.Option{
		ffmpeg.WithFFmpegPath(cfg.FFmpeg.BinaryPath),
		ffmpeg.WithFFprobePath(cfg.FFmpeg.ProbePath),
		ffmpeg.WithThreads(cfg.FFmpeg.Threads),
	}
	if cfg.FFmpeg.TimeoutSeconds > 0 {
		opts = append(opts, ffmpeg.WithTimeout(time.Duration(cfg.FFmpeg.TimeoutSeconds)*time.Second))
	}

	return ffmpeg.New(log.Logger, opts...)
}
