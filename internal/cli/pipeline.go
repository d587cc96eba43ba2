package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/dataset"
	"github.com/ivked85/filterman/internal/declare"
	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/logging"
	"github.com/ivked85/filterman/internal/output"
	"github.com/ivked85/filterman/internal/records"
	"github.com/ivked85/filterman/internal/sqlquery"
)

// source is an opened dataset together with the files it was built from.
type source struct {
	data  dataset.Dataset
	files []string
	close func() error
}

func (s *source) Close() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// openSource loads the declarations and the data selected by opts and
// returns a dataset whose engine reports to observers.
func openSource(ctx context.Context, opts *sourceOptions, observers ...filter.Observer) (*source, error) {
	logger := logging.FromContext(ctx)

	opts.fill(config.FromContext(ctx))

	if opts.filters == "" {
		return nil, &ExitError{Code: exitConfig, Err: errors.New("--filters is required")}
	}

	if opts.data == "" && opts.db == "" {
		return nil, &ExitError{Code: exitConfig, Err: errors.New("one of --data or --db is required")}
	}

	decls, err := config.LoadDeclarations(opts.filters)
	if err != nil {
		return nil, &ExitError{Code: exitDeclarations, Err: err}
	}

	src := &source{files: []string{opts.filters}}

	var set records.Set

	if opts.data != "" {
		set, err = records.Load(opts.data)
		if err != nil {
			return nil, &ExitError{Code: exitData, Err: err}
		}

		src.files = append(src.files, opts.data)
		logger.Debug("records loaded", slog.String("path", opts.data), slog.Int("count", set.Len()))
	}

	if opts.db == "" {
		reg, err := declare.Records(decls)
		if err != nil {
			return nil, &ExitError{Code: exitDeclarations, Err: err}
		}

		src.data = dataset.NewRecords(filter.NewEngine(reg, engineOptions[records.Set](logger, observers)...), set)

		return src, nil
	}

	db, err := sqlquery.Open(ctx, opts.db)
	if err != nil {
		return nil, &ExitError{Code: exitData, Err: err}
	}

	src.close = db.Close

	if opts.data != "" {
		if opts.table == "" {
			_ = db.Close()
			return nil, &ExitError{Code: exitConfig, Err: errors.New("--table is required to seed --db from --data")}
		}

		if err := sqlquery.Seed(ctx, db, opts.table, set); err != nil {
			_ = db.Close()
			return nil, &ExitError{Code: exitData, Err: err}
		}
	} else if opts.db != ":memory:" {
		src.files = append(src.files, opts.db)
	}

	reg, err := declare.SQL(decls)
	if err != nil {
		_ = db.Close()
		return nil, &ExitError{Code: exitDeclarations, Err: err}
	}

	src.data = dataset.NewSQL(filter.NewEngine(reg, engineOptions[sqlquery.Query](logger, observers)...), db, opts.table)

	return src, nil
}

func engineOptions[C filter.Collection[C]](logger *slog.Logger, observers []filter.Observer) []filter.EngineOption[C] {
	opts := []filter.EngineOption[C]{filter.WithLogger[C](logger)}
	for _, o := range observers {
		opts = append(opts, filter.WithObserver[C](o))
	}

	return opts
}

// values merges --query and --param into one parameter source. Repeated
// keys become lists.
func (o *paramOptions) values() (filter.Params, error) {
	vals, err := url.ParseQuery(o.query)
	if err != nil {
		return nil, &ExitError{Code: exitConfig, Err: fmt.Errorf("invalid --query: %w", err)}
	}

	for _, p := range o.params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, &ExitError{Code: exitConfig, Err: fmt.Errorf("invalid --param %q (want key=value)", p)}
		}

		vals.Add(k, v)
	}

	return filter.URLParams(vals), nil
}

// resolveHost returns the --host flag, or the only declared host.
func (o *paramOptions) resolveHost(ds dataset.Dataset) (string, error) {
	if o.host != "" {
		return o.host, nil
	}

	hosts := ds.Hosts()
	if len(hosts) != 1 {
		return "", &ExitError{Code: exitConfig, Err: fmt.Errorf("--host is required (declared hosts: %s)", strings.Join(hosts, ", "))}
	}

	return hosts[0], nil
}

// applyError maps dataset errors to exit codes.
func applyError(err error) error {
	if errors.Is(err, dataset.ErrBackend) {
		return &ExitError{Code: exitData, Err: err}
	}

	return &ExitError{Code: exitApply, Err: err}
}

// encoder validates the --format flag.
func (o *outputOptions) encoder() (output.EncodeFunc, error) {
	enc, err := output.DefaultRegistry().Encoder(o.format)
	if err != nil {
		return nil, &ExitError{Code: exitConfig, Err: err}
	}

	return enc, nil
}

func (o *outputOptions) render(enc output.EncodeFunc, set records.Set) ([]byte, error) {
	return enc(set.Maps(), output.SerializeOptions{OmitNull: o.omitNull, Indent: 2})
}
