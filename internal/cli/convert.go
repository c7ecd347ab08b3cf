package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/dgallion1/resumedraft/internal/parser"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	format string
	out    string
	title  string
}

func newConvertCommand(g *globalOptions, cfg config.Config) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a resume file to another format",
		Long: `Convert imports a resume (.md, .txt, .html, .pdf or .docx) into the
document model and exports it again.

Example:
  resumectl convert resume.docx --format md --out resume.md
  resumectl convert resume.md --format pdf --paper a4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, g, cfg, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "md", "Output format: md, html, pdf or docx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", `Output path ("-" for stdout)`)
	cmd.Flags().StringVar(&opts.title, "title", "", "Document title (defaults to the input file name)")
	return cmd
}

func runConvert(cmd *cobra.Command, g *globalOptions, cfg config.Config, opts *convertOptions, path string) (err error) {
	p, err := parser.ForFile(path, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed opening %s", path)
	}
	defer f.Close()

	root, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return errors.Wrapf(err, "failed parsing %s", path)
	}
	g.infof(cmd, "parsed %s: %d blocks\n", path, len(root.Children))

	title := opts.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return g.writeExport(ctx, cmd, root, opts.format, title, opts.out)
}
