/*
Package config provides type-safe configuration extraction from map[string]any
and decodes the checkpoint store settings.

# Basic Usage

Create a Config from any map and extract values with defaults. Dotted keys
walk nested sections:

	cfg := config.New(map[string]any{
	    "retention": 3,
	    "cassandra": map[string]any{"timeout": "2s"},
	})

	keep := cfg.Int("retention", 5)                              // 3
	timeout := cfg.Duration("cassandra.timeout", 5*time.Second)   // 2s
	missing := cfg.String("missing", "default")                   // "default"

# Loading

Files are YAML or JSON by extension. Load combines a file, .env files and
METASTORE_* environment variables, later sources winning:

	cfg, err := config.Load("metastore.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	sc, err := cfg.Store()

Environment values are strings; the accessors parse them. A double
underscore nests: METASTORE_CASSANDRA__HOSTS=10.0.0.1,10.0.0.2.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
