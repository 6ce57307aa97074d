/*
Package metastore stores job checkpoints in a wide-column table so a pipeline
can resume after failure.

# Overview

A checkpoint is a (job, time_stamp, values) row. The job is the partition
key and time_stamp a descending clustering key, so the newest checkpoint of a
job is the first row of its partition. After every commit the job is pruned
to its newest N checkpoints.

The module is layered:

  - schema: table descriptors, key ordering, Option
  - statement: generic statement generation over a partitioned table
  - metadata: the checkpoint table statements built on statement
  - checkpoint: stores (Cassandra, SQLite, memory) and Retention
  - cassandra: the gocql transport with retries
  - config: file, .env and environment configuration
  - observability: slog, OpenTelemetry metrics and tracing

# Basic Usage

	cfg, err := config.Load("metastore.yaml")
	if err != nil {
	    return err
	}
	sc, err := cfg.Store()
	if err != nil {
	    return err
	}

	ms, err := metastore.Open(ctx, sc, metastore.WithLogger(logger))
	if err != nil {
	    return err
	}
	defer ms.Close()

	if cp, err := ms.Resume(ctx, "ingest-orders"); err == nil {
	    offset = cp.Values["offset"]
	}
	_, err = ms.Commit(ctx, "ingest-orders", map[string]string{"offset": next})

# Statements Without a Store

metadata.Manager generates statements without executing them:

	m, err := metadata.New("ks", "checkpoints", schema.Some[int64](3600))
	stmt, err := m.SelectJob("ingest-orders", 5)
	fmt.Println(stmt.Inline())
	// SELECT * FROM ks.checkpoints WHERE job='ingest-orders' LIMIT 5

Statements carry their values separately from the query text; Inline renders
them as escaped literals for logs and for drivers that need literal text.

# Observability

WithMetrics(true) and WithTracing(true) use the global OpenTelemetry
providers. Configure them before calling Open.
*/
package metastore
