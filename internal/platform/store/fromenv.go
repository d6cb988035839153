package store

import "vitals/internal/platform/config"

// ConfigFromEnv assembles the backend config the standard way the binaries
// use it: SERVICE_PGSQL_*, SERVICE_REDIS_*, SERVICE_S3_*, SERVICE_CLICKHOUSE_*.
// Callers flip the Enabled flags for the backends their role needs.
func ConfigFromEnv(root config.Conf) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	rd := root.Prefix("SERVICE_REDIS_")
	s3 := root.Prefix("SERVICE_S3_")
	chc := root.Prefix("SERVICE_CLICKHOUSE_")

	return Config{
		PG: PGConfig{
			URL:         pg.MayString("DBURL", ""),
			MaxConns:    int32(pg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		},
		KV: KVConfig{
			Addr:     rd.MayString("ADDR", ""),
			DB:       rd.MayInt("DB", 0),
			Password: rd.MayString("PASSWORD", ""),
		},
		Obj: ObjConfig{
			Driver:   s3.MayEnum("DRIVER", "s3", "s3", "fs"),
			Bucket:   s3.MayString("BUCKET", ""),
			Region:   s3.MayString("REGION", ""),
			Endpoint: s3.MayString("ENDPOINT", ""),
			Dir:      s3.MayString("DIR", ""),
		},
		CH: CHConfig{
			Addr:     chc.MayString("ADDR", ""),
			Database: chc.MayString("DATABASE", "vitals"),
			Username: chc.MayString("USERNAME", "default"),
			Password: chc.MayString("PASSWORD", ""),
		},
	}
}
