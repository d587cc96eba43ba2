// Package watch re-runs a filter application whenever one of its input
// files changes. It watches the declaration and data files, debounces
// rapid events, and reports each run on a status writer.
package watch
