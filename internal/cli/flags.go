package cli

import (
	"github.com/spf13/cobra"

	"github.com/ivked85/filterman/internal/config"
)

// sourceOptions select the declaration file and the data to filter.
type sourceOptions struct {
	filters string
	data    string
	db      string
	table   string
}

// fill takes the sources from cfg, which holds the flag values merged with
// the environment and the config file.
func (o *sourceOptions) fill(cfg *config.Config) {
	for dst, v := range map[*string]string{&o.filters: cfg.Filters, &o.data: cfg.Data, &o.db: cfg.DB, &o.table: cfg.Table} {
		if v != "" {
			*dst = v
		}
	}
}

// paramOptions select the host and its request parameters.
type paramOptions struct {
	host   string
	params []string
	query  string
}

// outputOptions control how filtered records are rendered.
type outputOptions struct {
	format   string
	output   string
	omitNull bool
}

// registerSourceFlags adds the declaration and data flags to a cobra command.
func registerSourceFlags(cmd *cobra.Command, opts *sourceOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.filters, "filters", "", "filter declaration file (required, or filters: in the config file)")
	f.StringVar(&opts.data, "data", "", "JSON or YAML file with a list of records")
	f.StringVar(&opts.db, "db", "", "SQLite database (file path or :memory:)")
	f.StringVar(&opts.table, "table", "", "table to query in --db (default: the host name)")

	_ = cmd.MarkFlagFilename("filters", "yaml", "yml", "json")
	_ = cmd.MarkFlagFilename("data", "yaml", "yml", "json")
}

// registerParamFlags adds the host and parameter flags to a cobra command.
func registerParamFlags(cmd *cobra.Command, opts *paramOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "", "filter host (default: the only declared host)")
	f.StringArrayVarP(&opts.params, "param", "p", nil, "request parameter (key=value, repeatable)")
	f.StringVar(&opts.query, "query", "", "request parameters as a URL query string")

	_ = cmd.RegisterFlagCompletionFunc("host", completeHosts)
}

// registerOutputFlags adds the rendering flags to a cobra command.
func registerOutputFlags(cmd *cobra.Command, opts *outputOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "yaml", "output format: yaml, json, ndjson")
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	f.BoolVar(&opts.omitNull, "omit-null", false, "drop fields with null values")

	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
}
