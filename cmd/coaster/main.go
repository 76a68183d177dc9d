// coaster roda a simulação sem servidor: útil para inspecionar quadros e a
// geometria da trilha de um dataset salvo em arquivo.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"coaster_go/internal/coaster"
	"coaster_go/internal/config"
	"coaster_go/internal/curve"
	"coaster_go/internal/models"
	"coaster_go/internal/source"
	"coaster_go/pkg/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type commonFlags struct {
	input   string
	buckets int
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "arquivo JSON com a série (vazio usa a URL padrão)")
	cmd.Flags().IntVarP(&f.buckets, "buckets", "b", config.Default().Track.Buckets, "número de grupos da redução")
}

// buildTrack carrega o dataset e constrói a trilha
func (f *commonFlags) buildTrack(ctx context.Context) (*curve.Track, *models.Dataset, error) {
	cfg := config.Default()
	cfg.Source.File = f.input
	cfg.Track.Buckets = f.buckets
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	dataset, err := source.NewLoader(cfg.Source, nil).Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	track, _, err := coaster.BuildTrack(dataset, cfg.Track)
	if err != nil {
		return nil, nil, err
	}
	return track, dataset, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "coaster",
		Short:        "Simulação offline da montanha-russa de TVS",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init()
			logger.SetOutput(cmd.ErrOrStderr())
			if verbose {
				logger.SetLevel(logger.DEBUG)
			} else {
				logger.SetLevel(logger.WARN)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log detalhado em stderr")

	root.AddCommand(newSimulateCmd(out), newTrackCmd(out))
	return root
}

func newSimulateCmd(out io.Writer) *cobra.Command {
	var (
		flags commonFlags
		ticks int
		delta time.Duration
		every int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Executa N ticks e imprime os quadros em JSON, um por linha",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks <= 0 {
				return fmt.Errorf("--ticks deve ser positivo")
			}
			if every <= 0 {
				every = 1
			}

			track, _, err := flags.buildTrack(cmd.Context())
			if err != nil {
				return err
			}

			engine := coaster.NewEngine(track, config.Default().Simulation.Dynamics)
			enc := json.NewEncoder(out)
			start := time.Unix(0, 0).UTC()

			for i := 1; i <= ticks; i++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				frame := engine.Tick(delta, start.Add(time.Duration(i)*delta))
				if i%every != 0 && !frame.Wrapped && i != ticks {
					continue
				}
				if err := enc.Encode(frame); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 600, "quantidade de ticks")
	cmd.Flags().DurationVarP(&delta, "delta", "d", time.Second/60, "tempo entre ticks")
	cmd.Flags().IntVarP(&every, "every", "e", 1, "imprime um quadro a cada N ticks (voltas e o último sempre saem)")
	return cmd
}

func newTrackCmd(out io.Writer) *cobra.Command {
	var (
		flags    commonFlags
		segments int
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Imprime a trilha amostrada em JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			track, dataset, err := flags.buildTrack(cmd.Context())
			if err != nil {
				return err
			}

			return json.NewEncoder(out).Encode(map[string]interface{}{
				"fingerprint": dataset.Fingerprint,
				"samples":     dataset.Len(),
				"bounds":      track.Bounds(),
				"points":      curve.Sample(track, segments),
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&segments, "segments", "s", curve.RailSegments, "número de segmentos")
	return cmd
}
