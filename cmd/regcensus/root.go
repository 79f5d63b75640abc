package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/QuantGov/regcensus-api-go/pkg/config"
	"github.com/QuantGov/regcensus-api-go/pkg/regcensus"
	"github.com/QuantGov/regcensus-api-go/pkg/sink"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	BaseURL    string
	Format     string // "csv" | "json"
	Verbose    bool

	client *regcensus.Client
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"csv", "json"}

// NewRootCommand creates the root command for the regcensus CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "regcensus",
		Short:         "Query the RegData regulatory-data service",
		Long:          "Resolve regulation counts by jurisdiction, series, date, agency and industry, and browse the service's metadata.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usagef("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.connect(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (env vars override it)")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", "", "service base URL")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "csv", "output format (csv|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log API calls")

	cmd.AddCommand(NewValuesCommand(opts))
	cmd.AddCommand(NewDocumentValuesCommand(opts))
	cmd.AddCommand(NewDocumentsCommand(opts))
	cmd.AddCommand(NewReadingTimeCommand(opts))
	cmd.AddCommand(NewMetadataCommands(opts)...)

	return cmd, opts
}

// close releases the client. It runs after every command, including failed
// ones, which cobra's post-run hooks skip.
func (o *RootOptions) close(ctx context.Context) error {
	if o.client == nil {
		return nil
	}
	err := o.client.Close(ctx)
	o.client = nil
	return err
}

func (o *RootOptions) connect(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.LoadFile(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	client, err := regcensus.NewFromConfig(cmd.Context(), cfg,
		regcensus.WithLogger(logger.With("component", "regcensus")),
		regcensus.WithSinkOptions(sink.WithLogger(logger.With("component", "sink"))),
	)
	if err != nil {
		return err
	}
	o.client = client
	return nil
}
