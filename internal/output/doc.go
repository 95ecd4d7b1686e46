// Package output provides deterministic YAML/JSON serialization and
// pluggable output destinations for plans, probe metadata, and run results.
//
// The package is organized around three concerns:
//
//   - Serialization (serializer.go): Canonical YAML/JSON with deterministic
//     key ordering, configurable indentation, and null stripping.
//
//   - Writers (writer.go): Pluggable output destinations via the [Writer]
//     interface, with [StdoutWriter] and [FileWriter] implementations.
//
//   - Registry (registry.go): Format-name to writer-factory mapping used by
//     the export-style CLI commands.
package output
