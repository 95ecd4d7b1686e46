package docs

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

// Formatter renders a DocModel to a writer.
type Formatter interface {
	Format(w io.Writer, model *DocModel) error
}

// NewFormatter returns a formatter for the given format name.
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	case "asciidoc", "adoc":
		return &AsciiDocFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported docs format: %s", format)
	}
}

// defaultTitle is used when the model carries no title override.
const defaultTitle = "Transformer Catalog"

func titleOf(model *DocModel) string {
	if model.Title != "" {
		return model.Title
	}

	return defaultTitle
}

// ---------------------------------------------------------------------------
// Markdown
// ---------------------------------------------------------------------------

// MarkdownFormatter renders documentation as Markdown.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, model *DocModel) error {
	fmt.Fprintf(w, "# %s\n\n", titleOf(model))

	if len(model.Transformers) > 0 {
		fmt.Fprintf(w, "## Transformers\n\n")

		for _, t := range model.Transformers {
			fmt.Fprintf(w, "### %s\n\n", t.Name)

			if t.Description != "" {
				fmt.Fprintf(w, "%s\n\n", t.Description)
			}

			if t.Command != "" {
				fmt.Fprintf(w, "**Command:** `%s`  \n", t.Command)
			}

			if t.Timeout != "" {
				fmt.Fprintf(w, "**Timeout:** `%s`  \n", t.Timeout)
			}

			if t.EngineVersion != "" {
				fmt.Fprintf(w, "**Engine Version:** `%s`  \n", t.EngineVersion)
			}

			if t.ConsumesMetadata {
				fmt.Fprintf(w, "**Consumes Metadata:** yes  \n")
			}

			fmt.Fprintln(w)
			fmt.Fprintln(w, "| Surface | Attribute | Expression |")
			fmt.Fprintln(w, "|---------|-----------|------------|")

			writeMarkdownSurfaceRows(w, "inputs", t.Inputs)
			writeMarkdownSurfaceRows(w, "outputs", t.Outputs)

			fmt.Fprintln(w)
		}
	}

	if len(model.Edges) > 0 {
		fmt.Fprintf(w, "## Chain Edges\n\n")
		fmt.Fprintln(w, "| From | To | Type |")
		fmt.Fprintln(w, "|------|----|------|")

		for _, e := range model.Edges {
			fmt.Fprintf(w, "| `%s` | `%s` | `%s` |\n", e.From, e.To, e.Via)
		}

		fmt.Fprintln(w)
	}

	if model.IncludeExamples {
		example := GenerateExampleYAML(model)
		fmt.Fprintf(w, "## Example\n\n```yaml\n%s```\n", example)
	}

	return nil
}

func writeMarkdownSurfaceRows(w io.Writer, surface string, attrs []AttributeInfo) {
	for _, a := range attrs {
		fmt.Fprintf(w, "| %s | `%s` | `%s` |\n", surface, a.Name, a.Expression)
	}
}

// ---------------------------------------------------------------------------
// HTML
// ---------------------------------------------------------------------------

// HTMLFormatter renders documentation as a standalone HTML page.
type HTMLFormatter struct{}

var htmlTpl = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:2em;line-height:1.6}
table{border-collapse:collapse;width:100%;margin-bottom:1em}
th,td{border:1px solid #ddd;padding:8px;text-align:left}
th{background:#f5f5f5}
code{background:#f0f0f0;padding:2px 4px;border-radius:3px}
pre{background:#f5f5f5;padding:1em;border-radius:4px;overflow-x:auto}
</style>
</head>
<body>
<h1>{{.Title}}</h1>

{{range .Transformers}}
<h3>{{.Name}}</h3>
{{if .Description}}<p>{{.Description}}</p>{{end}}
{{if .Command}}<p><strong>Command:</strong> <code>{{.Command}}</code></p>{{end}}
{{if .Timeout}}<p><strong>Timeout:</strong> <code>{{.Timeout}}</code></p>{{end}}
{{if .EngineVersion}}<p><strong>Engine Version:</strong> <code>{{.EngineVersion}}</code></p>{{end}}
{{if .ConsumesMetadata}}<p><strong>Consumes Metadata:</strong> yes</p>{{end}}
<table>
<tr><th>Surface</th><th>Attribute</th><th>Expression</th></tr>
{{range .Inputs}}<tr><td>inputs</td><td><code>{{.Name}}</code></td><td><code>{{.Expression}}</code></td></tr>
{{end}}{{range .Outputs}}<tr><td>outputs</td><td><code>{{.Name}}</code></td><td><code>{{.Expression}}</code></td></tr>
{{end}}</table>
{{end}}

{{if .Edges}}
<h2>Chain Edges</h2>
<table>
<tr><th>From</th><th>To</th><th>Type</th></tr>
{{range .Edges}}<tr><td><code>{{.From}}</code></td><td><code>{{.To}}</code></td><td><code>{{.Via}}</code></td></tr>
{{end}}
</table>
{{end}}

{{if .ExampleYAML}}
<h2>Example</h2>
<pre><code>{{.ExampleYAML}}</code></pre>
{{end}}

</body>
</html>
`))

// htmlModel wraps DocModel with precomputed fields for the HTML template.
type htmlModel struct {
	*DocModel
	ExampleYAML string
}

func (f *HTMLFormatter) Format(w io.Writer, model *DocModel) error {
	m := htmlModel{DocModel: model}
	m.Title = titleOf(model)

	if model.IncludeExamples {
		m.ExampleYAML = GenerateExampleYAML(model)
	}

	return htmlTpl.Execute(w, m)
}

// ---------------------------------------------------------------------------
// AsciiDoc
// ---------------------------------------------------------------------------

// AsciiDocFormatter renders documentation as AsciiDoc.
type AsciiDocFormatter struct{}

func (f *AsciiDocFormatter) Format(w io.Writer, model *DocModel) error {
	fmt.Fprintf(w, "= %s\n\n", titleOf(model))

	if len(model.Transformers) > 0 {
		fmt.Fprintf(w, "== Transformers\n\n")

		for _, t := range model.Transformers {
			fmt.Fprintf(w, "=== %s\n\n", t.Name)

			if t.Description != "" {
				fmt.Fprintf(w, "%s\n\n", t.Description)
			}

			if t.Command != "" {
				fmt.Fprintf(w, "*Command:* `%s` +\n", t.Command)
			}

			if t.Timeout != "" {
				fmt.Fprintf(w, "*Timeout:* `%s` +\n", t.Timeout)
			}

			if t.EngineVersion != "" {
				fmt.Fprintf(w, "*Engine Version:* `%s` +\n", t.EngineVersion)
			}

			if t.ConsumesMetadata {
				fmt.Fprintf(w, "*Consumes Metadata:* yes +\n")
			}

			fmt.Fprintln(w)
			fmt.Fprintln(w, "[cols=\"1,1,2\", options=\"header\"]")
			fmt.Fprintln(w, "|===")
			fmt.Fprintln(w, "| Surface | Attribute | Expression")

			writeAsciiDocSurfaceRows(w, "inputs", t.Inputs)
			writeAsciiDocSurfaceRows(w, "outputs", t.Outputs)

			fmt.Fprintln(w, "|===")
			fmt.Fprintln(w)
		}
	}

	if len(model.Edges) > 0 {
		fmt.Fprintf(w, "== Chain Edges\n\n")
		fmt.Fprintln(w, "[cols=\"1,1,2\", options=\"header\"]")
		fmt.Fprintln(w, "|===")
		fmt.Fprintln(w, "| From | To | Type")

		for _, e := range model.Edges {
			fmt.Fprintf(w, "\n| `%s`\n| `%s`\n| `%s`\n", e.From, e.To, e.Via)
		}

		fmt.Fprintln(w, "|===")
		fmt.Fprintln(w)
	}

	if model.IncludeExamples {
		example := GenerateExampleYAML(model)
		fmt.Fprintf(w, "== Example\n\n[source,yaml]\n----\n%s----\n", example)
	}

	return nil
}

func writeAsciiDocSurfaceRows(w io.Writer, surface string, attrs []AttributeInfo) {
	for _, a := range attrs {
		fmt.Fprintf(w, "\n| %s\n| `%s`\n| `%s`\n", surface, a.Name, a.Expression)
	}
}
