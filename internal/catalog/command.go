package catalog

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// commandOutputLimit bounds how much tool output is carried into logs and
// error messages.
const commandOutputLimit = 2048

// runFunc executes an expanded command. Tests substitute it.
type runFunc func(ctx context.Context, tc *pipeline.TransformerContext, argv, env []string) error

// CommandTransformer runs an external tool to produce a rendition. The
// command template is expanded per step: ${input} and ${output} name the
// materialized input artifact and the expected output path, ${inDir} and
// ${outDir} the scratch directories, ${type} the target type, and ${width}
// and ${height} the target dimensions when the step declares them.
type CommandTransformer struct {
	spec *Spec
	run  runFunc
}

var _ pipeline.Transformer = (*CommandTransformer)(nil)

// Build wraps a catalog spec in a command-backed transformer.
func Build(spec *Spec) (*CommandTransformer, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("transformer %q: catalog spec has no command", spec.Name)
	}

	return &CommandTransformer{spec: spec, run: runCommand}, nil
}

// Transformers builds a command transformer for every spec.
func Transformers(specs []*Spec) ([]pipeline.Transformer, error) {
	out := make([]pipeline.Transformer, 0, len(specs))

	for _, s := range specs {
		t, err := Build(s)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, nil
}

// Name returns the registered name.
func (t *CommandTransformer) Name() string { return t.spec.Name }

// Manifest returns the declared capability surfaces.
func (t *CommandTransformer) Manifest() *manifest.Manifest { return t.spec.Manifest }

// Compute expands the command template against the step and runs it.
func (t *CommandTransformer) Compute(ctx context.Context, tc *pipeline.TransformerContext) error {
	if t.spec.Timeout.Duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, t.spec.Timeout.Duration)
		defer cancel()
	}

	expand := expander(tc)

	argv := make([]string, len(t.spec.Command))
	for i, arg := range t.spec.Command {
		argv[i] = os.Expand(arg, expand)
	}

	env := make([]string, 0, len(t.spec.Env))
	for _, k := range sortedKeys(t.spec.Env) {
		env = append(env, k+"="+os.Expand(t.spec.Env[k], expand))
	}

	return t.run(ctx, tc, argv, env)
}

// expander maps command template placeholders to step values. Unknown
// placeholders expand to the empty string.
func expander(tc *pipeline.TransformerContext) func(string) string {
	return func(key string) string {
		switch key {
		case "input":
			return tc.Input.Path()
		case "output":
			return tc.Output.Path
		case "inDir":
			return tc.Directory.In
		case "outDir":
			return tc.Directory.Out
		case "type":
			return tc.Output.Type()
		case "width":
			return dimension(tc.Output, manifest.AttrWidth)
		case "height":
			return dimension(tc.Output, manifest.AttrHeight)
		default:
			return ""
		}
	}
}

// dimension renders a numeric rendition attribute without a trailing
// fraction when it is integral.
func dimension(r *pipeline.Rendition, attr string) string {
	n, ok := maputil.Number(r.Attributes[attr])
	if !ok {
		return ""
	}

	return strconv.FormatFloat(n, 'f', -1, 64)
}

// runCommand resolves the binary and runs it with the step's scratch
// directory as working directory.
func runCommand(ctx context.Context, tc *pipeline.TransformerContext, argv, env []string) error {
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("command %q not found on PATH: %w", argv[0], err)
	}

	cmd := exec.CommandContext(ctx, bin, argv[1:]...) //nolint:gosec // argv comes from the operator's catalog, not request data
	cmd.Dir = tc.Directory.Base
	cmd.Env = append(os.Environ(), env...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := tail(out)
		if msg == "" {
			return fmt.Errorf("command %s: %w", argv[0], err)
		}

		return fmt.Errorf("command %s: %w: %s", argv[0], err, msg)
	}

	if len(out) > 0 {
		tc.Logger.Debug("command output",
			"command", argv[0],
			"output", tail(out),
		)
	}

	return nil
}

// tail trims tool output to its last commandOutputLimit bytes.
func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > commandOutputLimit {
		s = s[len(s)-commandOutputLimit:]
	}

	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
