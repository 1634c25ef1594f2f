package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/syllabus"
	cachesvc "github.com/academictoken/registry/services/cache"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	logger   core.Logger
	newCache func(ctx context.Context) (core.Cache, func() error, error)

	format  string
	workers int
	noCache bool

	processor  *syllabus.Processor
	closeCache func() error
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "processor",
		Short:         "Parse syllabus documents into structured JSON or YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.setUp(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cli.closeCache == nil {
				return nil
			}
			return cli.closeCache()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cli.format, "format", "f", syllabus.FormatJSON, "Output format (json|yaml)")
	flags.IntVarP(&cli.workers, "workers", "w", 0, "Files parsed concurrently (default 4)")
	flags.BoolVar(&cli.noCache, "no-cache", false, "Parse every document, even the ones already seen")

	root.AddCommand(cli.parseCmd(), cli.dirCmd(), cli.watchCmd())
	return root
}

func (cli *commandLine) setUp(ctx context.Context) error {
	var cache core.Cache = core.NopCache{}
	if !cli.noCache {
		c, closeFn, err := cli.newCache(ctx)
		if err != nil {
			cli.logger.Warn("syllabus cache unavailable, caching in memory", err)
			c, closeFn = cachesvc.NewMemoryCache(), nil
		}
		cache, cli.closeCache = c, closeFn
	}
	cli.processor = syllabus.NewProcessor(cache, cli.logger, cli.workers)
	return nil
}

// output writes v in the requested format and fails when a result carries an error.
func (cli *commandLine) output(w io.Writer, results ...syllabus.Result) error {
	var v interface{} = results
	if len(results) == 1 {
		v = results[0]
	}
	if err := syllabus.Encode(w, cli.format, v); err != nil {
		return err
	}
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d syllabi failed", failed, len(results))
	}
	return nil
}

func (cli *commandLine) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse syllabus files; use - to read from stdin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "reading stdin")
				}
				return cli.output(cmd.OutOrStdout(), cli.processor.Process(cmd.Context(), "stdin", string(data)))
			}
			results, err := cli.processor.Batch(cmd.Context(), args)
			if err != nil {
				return err
			}
			return cli.output(cmd.OutOrStdout(), results...)
		},
	}
}

func (cli *commandLine) dirCmd() *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "dir DIR",
		Short: "Parse every syllabus file (.txt, .md) of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := syllabus.Files(args[0])
			if err != nil {
				return err
			}
			results, err := cli.processor.Batch(cmd.Context(), paths)
			if err != nil {
				return err
			}
			outErr := cli.output(cmd.OutOrStdout(), results...)
			if stats {
				if err = syllabus.Encode(cmd.ErrOrStderr(), cli.format, cli.processor.Stats()); err != nil {
					return err
				}
			}
			return outErr
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "Print processing stats to stderr")
	return cmd
}

func (cli *commandLine) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Parse syllabus files as they are created or written, until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
				return errors.Errorf("%s is not a directory", args[0])
			}
			out := cmd.OutOrStdout()
			return cli.processor.Watch(cmd.Context(), args[0], func(res syllabus.Result) {
				if err := syllabus.Encode(out, cli.format, res); err != nil {
					cli.logger.Error("encoding result", err)
				}
			})
		},
	}
}
