package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/audit"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/docs"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/logging"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect, audit, and document transformer catalogs",
	}

	cmd.AddCommand(
		newCatalogListCommand(),
		newCatalogAuditCommand(),
		newCatalogDocsCommand(),
	)

	return cmd
}

func newCatalogListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [path...]",
		Short: "List the transformers a catalog declares",
		Long: `List every transformer in the given catalogs with its type surfaces and
command. Paths default to the configured catalogs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(cmd.Context(), cmd, args)
		},
	}

	return cmd
}

func runCatalogList(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(ctx)

	specs, err := catalogSpecs(cfg, args)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "NAME\tINPUT\tOUTPUT\tCOMMAND")
	_, _ = fmt.Fprintln(tw, "----\t-----\t------\t-------")

	for _, s := range specs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			s.Name,
			s.Manifest.Inputs[manifest.AttrType].String(),
			s.Manifest.Outputs[manifest.AttrType].String(),
			strings.Join(s.Command, " "),
		)
	}

	if err := tw.Flush(); err != nil {
		return &ExitError{Code: 6, Err: err}
	}

	_, _ = fmt.Fprintf(w, "\nTransformers: %d\n", len(specs))

	return nil
}

type catalogAuditOptions struct {
	format   string
	failOn   string
	strict   bool
	policies []string
}

func newCatalogAuditCommand() *cobra.Command {
	opts := &catalogAuditOptions{}

	cmd := &cobra.Command{
		Use:   "audit [path...]",
		Short: "Audit catalogs for misdeclarations and unsafe commands",
		Long: `Audit runs static checks against transformer catalogs: duplicate names,
malformed type tokens, inverted ranges, unreachable surfaces, and unsafe
command declarations. Custom policy files add organization rules.

Exit codes:
  0  No findings at or above the --fail-on severity
  1  Error
  2  Invalid arguments
  9  Findings at or above the --fail-on severity`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogAudit(cmd.Context(), cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "table", "output format: table, json, sarif")
	f.StringVar(&opts.failOn, "fail-on", "high", "fail when findings reach this severity: critical, high, medium, low, info")
	f.BoolVar(&opts.strict, "strict", false, "enable informational checks")
	f.StringSliceVar(&opts.policies, "policy", nil, "custom policy YAML file (can specify multiple)")

	return cmd
}

func runCatalogAudit(ctx context.Context, cmd *cobra.Command, args []string, opts *catalogAuditOptions) error {
	cfg := config.FromContext(ctx)

	// Resolve the formatter and threshold up front so bad flags fail fast.
	formatter, err := audit.NewFormatter(opts.format)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	threshold, err := audit.ParseSeverity(opts.failOn)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	specs, err := catalogSpecs(cfg, args)
	if err != nil {
		return err
	}

	checks := audit.DefaultChecks(opts.strict)

	for _, path := range opts.policies {
		pf, err := audit.LoadPolicyFile(path)
		if err != nil {
			return &ExitError{Code: 2, Err: fmt.Errorf("loading policy %s: %w", path, err)}
		}

		checks = append(checks, pf.ToChecks()...)
	}

	result := audit.New(checks...).Run(ctx, specs)

	if err := formatter.Format(cmd.OutOrStdout(), result); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("formatting audit result: %w", err)}
	}

	if !result.Passed(threshold) {
		return &ExitError{Code: 9, Err: fmt.Errorf("audit failed: findings at or above %s severity", threshold)}
	}

	return nil
}

type catalogDocsOptions struct {
	format          string
	title           string
	outputArg       string
	includeExamples bool
}

func newCatalogDocsCommand() *cobra.Command {
	opts := &catalogDocsOptions{}

	cmd := &cobra.Command{
		Use:   "docs [path...]",
		Short: "Generate reference documentation for catalogs",
		Long: `Docs renders transformer catalogs as reference documentation: every
transformer with its capability surfaces, plus the chain hops the planner
graph admits between them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogDocs(cmd.Context(), cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "markdown", "output format: markdown, html, asciidoc")
	f.StringVar(&opts.title, "title", "", "document title (default: derived from the catalog)")
	f.StringVarP(&opts.outputArg, "output", "o", "", "output file path (default: stdout)")
	f.BoolVar(&opts.includeExamples, "include-examples", false, "append an example instructions section")

	return cmd
}

func runCatalogDocs(ctx context.Context, cmd *cobra.Command, args []string, opts *catalogDocsOptions) error {
	logger := logging.FromContext(ctx)
	cfg := config.FromContext(ctx)

	formatter, err := docs.NewFormatter(opts.format)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	specs, err := catalogSpecs(cfg, args)
	if err != nil {
		return err
	}

	model := docs.FromSpecs(specs)
	model.Title = opts.title
	model.IncludeExamples = opts.includeExamples

	if opts.outputArg != "" {
		f, err := os.Create(opts.outputArg)
		if err != nil {
			return &ExitError{Code: 6, Err: fmt.Errorf("creating output file: %w", err)}
		}
		defer f.Close()

		if err := formatter.Format(f, model); err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("formatting docs: %w", err)}
		}

		logger.Info("docs written",
			slog.String("path", opts.outputArg),
			slog.String("format", opts.format),
		)

		return nil
	}

	if err := formatter.Format(cmd.OutOrStdout(), model); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("formatting docs: %w", err)}
	}

	return nil
}
