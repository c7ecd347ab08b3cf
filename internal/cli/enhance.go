package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type enhanceOptions struct {
	modelOptions
	subject string
}

func newEnhanceCommand(g *globalOptions, cfg config.Config) *cobra.Command {
	opts := &enhanceOptions{}
	cmd := &cobra.Command{
		Use:   "enhance [text]",
		Short: "Rewrite a passage of resume text",
		Long: `Enhance asks the model to tighten a passage of resume text. With no
argument the text is read from stdin.

Example:
  resumectl enhance "worked on the billing system" --context "experience bullet"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnhance(cmd, g, opts, args)
		},
	}
	opts.register(cmd, cfg)
	cmd.Flags().StringVar(&opts.subject, "context", "", "What the text is, e.g. \"summary\" or \"experience bullet\"")
	return cmd
}

func runEnhance(cmd *cobra.Command, g *globalOptions, opts *enhanceOptions, args []string) (err error) {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		var b []byte
		b, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "failed reading stdin")
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("text is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client := opts.client(g, cmd)
	defer client.Close()

	out, err := client.Enhance(ctx, text, opts.subject)
	if err != nil {
		return errors.Wrap(err, "enhance failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
