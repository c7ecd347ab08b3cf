package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/dgallion1/resumedraft/internal/export"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (o *globalOptions) exporter() *export.Service {
	return export.NewService(&export.PDFRenderer{
		ChromePath: o.chrome,
		Paper:      export.ParsePaper(o.paper),
	})
}

// writeExport renders root and writes it to out. "-" writes to stdout; an
// empty out uses the export's own filename in the current directory.
func (o *globalOptions) writeExport(ctx context.Context, cmd *cobra.Command, root *doctree.Node, formatName, title, out string) (err error) {
	f, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	res, err := o.exporter().Export(ctx, f, root, title)
	if err != nil {
		return errors.Wrapf(err, "failed exporting %s", f)
	}
	for _, l := range res.Losses {
		o.infof(cmd, "warning: %s %s: %s\n", l.Kind, l.NodeID, l.Reason)
	}

	if out == "-" {
		_, err = cmd.OutOrStdout().Write(res.Data)
		return errors.Wrap(err, "failed writing output")
	}
	if out == "" {
		out = res.Filename
	}
	if dir := filepath.Dir(out); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed creating %s", dir)
		}
	}
	if err = os.WriteFile(out, res.Data, 0o644); err != nil {
		return errors.Wrapf(err, "failed writing %s", out)
	}
	o.infof(cmd, "wrote %s (%d bytes)\n", out, len(res.Data))
	return nil
}
