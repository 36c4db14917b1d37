package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/assembly-sim/sim/replication"
	"github.com/inference-sim/assembly-sim/sim/sink"
)

type outputOptions struct {
	CSVDir      string
	Prometheus  bool
	RedisAddr   string
	RedisPrefix string
	RedisMaxLen int64
	SQLDSN      string
	SQLTable    string
}

// outputs holds the connections shared by every replication's sinks.
type outputs struct {
	ctx  context.Context
	opts outputOptions

	registry *prometheus.Registry
	redis    *redis.Client
	db       *sql.DB
}

// openOutputs connects to every configured backend up front so a bad address
// fails before the first replication.
func openOutputs(ctx context.Context, opts outputOptions) (*outputs, error) {
	o := &outputs{ctx: ctx, opts: opts}
	if opts.CSVDir != "" {
		if err := os.MkdirAll(opts.CSVDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating csv dir: %w", err)
		}
	}
	if opts.Prometheus {
		o.registry = prometheus.NewRegistry()
	}
	if opts.RedisAddr != "" {
		o.redis = redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := o.redis.Ping(ctx).Err(); err != nil {
			o.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", opts.RedisAddr, err)
		}
	}
	if opts.SQLDSN != "" {
		db, err := sql.Open("pgx", opts.SQLDSN)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
		o.db = db
		ddl, err := sink.NewSQLSink(ctx, db, opts.SQLTable, "", 0)
		if err != nil {
			o.Close()
			return nil, err
		}
		if err := ddl.EnsureTable(ctx); err != nil {
			o.Close()
			return nil, err
		}
	}
	return o, nil
}

// Factory builds the per-replication sink from the configured backends.
func (o *outputs) Factory() replication.SinkFactory {
	return func(rep replication.Replication) (sink.Sink, error) {
		var sinks []sink.Sink
		if o.opts.CSVDir != "" {
			path := filepath.Join(o.opts.CSVDir, fmt.Sprintf("replication_%03d.csv", rep.Index))
			c, err := sink.CreateCSVFile(path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, c)
		}
		if o.registry != nil {
			p, err := sink.NewPromSink(o.registry, rep.RunID)
			if err != nil {
				return nil, errors.Join(err, sink.NewMulti(sinks...).Close())
			}
			sinks = append(sinks, p)
		}
		if o.redis != nil {
			stream := sink.StreamKey(o.opts.RedisPrefix, rep.RunID)
			sinks = append(sinks, sink.NewRedisSink(o.ctx, o.redis, stream, o.opts.RedisMaxLen))
			logrus.Debugf("replication %d streaming to %s", rep.Index, stream)
		}
		if o.db != nil {
			s, err := sink.NewSQLSink(o.ctx, o.db, o.opts.SQLTable, rep.RunID, 0)
			if err != nil {
				return nil, errors.Join(err, sink.NewMulti(sinks...).Close())
			}
			sinks = append(sinks, s)
		}
		if len(sinks) == 0 {
			return nil, nil
		}
		return sink.NewMulti(sinks...), nil
	}
}

// Registry returns the Prometheus registry, or nil when disabled.
func (o *outputs) Registry() *prometheus.Registry { return o.registry }

// Close releases backend connections.
func (o *outputs) Close() error {
	var errs []error
	if o.redis != nil {
		errs = append(errs, o.redis.Close())
	}
	if o.db != nil {
		errs = append(errs, o.db.Close())
	}
	return errors.Join(errs...)
}
