// Package output renders filtered records and writes them to their
// destination.
//
//   - Serialization (serializer.go): YAML, JSON and NDJSON encoders with
//     deterministic key order and optional null stripping.
//
//   - Formats (registry.go): a [Registry] mapping format names to encoders.
//
//   - Writers (writer.go): the [Writer] interface with stream and file
//     implementations.
//
//   - Diffing (diff.go): unified diffs between two renderings, used to show
//     what a filter run removed.
package output
