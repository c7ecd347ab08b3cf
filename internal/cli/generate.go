package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/dgallion1/resumedraft/internal/llm"
	"github.com/dgallion1/resumedraft/internal/parser"
	"github.com/dgallion1/resumedraft/internal/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type modelOptions struct {
	url     string
	model   string
	timeout time.Duration
}

func (m *modelOptions) register(cmd *cobra.Command, cfg config.Config) {
	cmd.Flags().StringVar(&m.url, "ollama-url", cfg.OllamaURL, "Ollama base URL")
	cmd.Flags().StringVar(&m.model, "model", cfg.OllamaModel, "Ollama model name")
	cmd.Flags().DurationVar(&m.timeout, "timeout", cfg.LLMTimeout, "Model request timeout")
}

func (m *modelOptions) client(g *globalOptions, cmd *cobra.Command) *llm.Client {
	return llm.NewClient(m.url, m.model, m.timeout, g.logger(cmd.ErrOrStderr()))
}

type generateOptions struct {
	modelOptions
	profile      string
	instructions string
	format       string
	out          string
}

func newGenerateCommand(g *globalOptions, cfg config.Config) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a resume from a profile",
		Long: `Generate sends a profile (JSON or plain text) and optional instructions to
the model and exports the drafted resume.

Example:
  resumectl generate --profile profile.json --instructions "Target backend roles" --format docx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, opts)
		},
	}
	opts.register(cmd, cfg)
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", cfg.ProfilePath, "Profile file")
	cmd.Flags().StringVarP(&opts.instructions, "instructions", "i", "", "Extra instructions for the model")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "md", "Output format: md, html, pdf or docx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", `Output path ("-" for stdout)`)
	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalOptions, opts *generateOptions) (err error) {
	raw, err := os.ReadFile(opts.profile)
	if err != nil {
		return errors.Wrapf(err, "failed reading profile %s", opts.profile)
	}
	text, title := profileInput(raw)
	if text == "" {
		return errors.Errorf("profile %s is empty", opts.profile)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client := opts.client(g, cmd)
	defer client.Close()

	g.infof(cmd, "generating with %s\n", client.Model())
	md, err := client.Generate(ctx, text, opts.instructions)
	if err != nil {
		return errors.Wrap(err, "generation failed")
	}

	root, degraded := parser.NormalizeWithReport(md)
	for _, d := range degraded {
		g.infof(cmd, "warning: line %d %s kept as text (%s)\n", d.Line, d.Block, d.Reason)
	}
	return g.writeExport(ctx, cmd, root, opts.format, title, opts.out)
}

// profileInput accepts a stored profile record or any other file content
// as free text. The title is the profile's name when one is present.
func profileInput(raw []byte) (text, title string) {
	var p profile.Profile
	if err := json.Unmarshal(raw, &p); err == nil && !p.IsEmpty() {
		p = p.Normalize()
		return p.PromptText(), p.DisplayName()
	}
	return string(bytes.TrimSpace(raw)), ""
}
