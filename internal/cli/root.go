// Package cli implements resumectl, the command-line front end for
// converting and drafting resumes without the HTTP server.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	verbose bool
	paper   string
	chrome  string
}

// NewRootCommand builds the resumectl command tree.
func NewRootCommand() *cobra.Command {
	cfg := config.Load()
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "resumectl",
		Short: "Convert, draft and export resumes",
		Long: `resumectl converts resume files between Markdown, HTML, PDF and DOCX
and drafts new resumes from a profile using a local Ollama model.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	root.PersistentFlags().StringVar(&opts.paper, "paper", cfg.PDFPaper, "Page size for PDF and DOCX output (letter or a4)")
	root.PersistentFlags().StringVar(&opts.chrome, "chrome", cfg.ChromePath, "Chrome or Chromium binary used for PDF output")

	root.AddCommand(
		newConvertCommand(opts, cfg),
		newGenerateCommand(opts, cfg),
		newEnhanceCommand(opts, cfg),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *globalOptions) infof(cmd *cobra.Command, format string, args ...any) {
	if o.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}
