package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/fieldbook/videostats-gateway/internal/app"
	"github.com/fieldbook/videostats-gateway/internal/config"
	"github.com/fieldbook/videostats-gateway/internal/domain/videostats"
	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

const defaultFetchConcurrency = 4

type globalOptions struct {
	backendURL string
	token      string
	verbose    bool
}

type fetchResult struct {
	index   int
	VideoID string                 `json:"videoId"`
	Source  videostats.StatsSource `json:"statsSource,omitempty"`
	Stats   *videostats.VideoStats `json:"stats,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "statsctl",
		Short:         "Inspect and fetch normalized video statistics",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.backendURL, "backend-url", "", "Booking backend base URL (defaults to BACKEND_BASE_URL)")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("STATSCTL_TOKEN"), "Bearer token forwarded to the backend")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log backend calls to stderr")

	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newFetchCmd(opts))
	root.AddCommand(newLibraryCmd(opts))
	return root
}

func newNormalizeCmd() *cobra.Command {
	var showSource bool
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a statistics payload from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			result := videostats.InspectJSON(body)
			if showSource {
				fmt.Fprintf(cmd.ErrOrStderr(), "shape=%s source=%s\n", result.Shape, result.Source)
			}
			return writeIndented(cmd.OutOrStdout(), result.Stats)
		},
	}
	cmd.Flags().BoolVar(&showSource, "show-source", false, "Print the detected shape and stats source to stderr")
	return cmd
}

func newFetchCmd(opts *globalOptions) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "fetch <videoID>...",
		Short: "Fetch and normalize statistics for one or more videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newService(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := usecase.WithAccessToken(cmd.Context(), opts.token)

			results, err := fetchAll(ctx, service, args, concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, item := range results {
				if item.Error != "" {
					failed++
				}
				line, err := sonic.Marshal(item)
				if err != nil {
					return fmt.Errorf("encode result video_id=%s: %w", item.VideoID, err)
				}
				fmt.Fprintln(out, string(line))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d videos failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", defaultFetchConcurrency, "Maximum concurrent backend requests")
	return cmd
}

func newLibraryCmd(opts *globalOptions) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Print one page of the video library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, err := newService(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := usecase.WithAccessToken(cmd.Context(), opts.token)

			result, err := service.GetLibrary(ctx, page, limit)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Items per page (max 100)")
	return cmd
}

func fetchAll(ctx context.Context, service *usecase.VideoStatsService, videoIDs []string, concurrency int) ([]fetchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	p := pool.NewWithResults[fetchResult]().WithContext(ctx).WithMaxGoroutines(concurrency)
	for i, videoID := range videoIDs {
		p.Go(func(ctx context.Context) (fetchResult, error) {
			item := fetchResult{index: i, VideoID: strings.TrimSpace(videoID)}
			result, err := service.GetStats(ctx, item.VideoID)
			if err != nil {
				item.Error = err.Error()
				return item, nil
			}
			item.Source = result.Source
			item.Stats = &result.Stats
			return item, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	return results, nil
}

func newService(opts *globalOptions, stderr io.Writer) (*usecase.VideoStatsService, error) {
	if strings.TrimSpace(opts.backendURL) != "" {
		if err := os.Setenv("BACKEND_BASE_URL", opts.backendURL); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewNop()
	if opts.verbose {
		logger = logging.NewJSON(logging.LevelDebug, "statsctl")
		fmt.Fprintf(stderr, "backend=%s\n", cfg.BackendBaseURL)
	}

	backend := app.NewBackendClient(cfg, logger)
	return usecase.NewVideoStatsService(backend, nil, nil, logger, cfg.BackendFanoutWorkers), nil
}

func writeIndented(w io.Writer, v any) error {
	encoded, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
