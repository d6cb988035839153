package store

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG  PGConfig
	KV  KVConfig
	Obj ObjConfig
	CH  CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
}

// KVConfig configures the redis coordination store
type KVConfig struct {
	Enabled  bool
	Addr     string
	DB       int
	Password string
}

// ObjConfig configures the cold-tier object store
// Driver is "s3" or "fs"
type ObjConfig struct {
	Enabled bool
	Driver  string

	// s3 driver
	Bucket   string
	Region   string
	Endpoint string // optional, for s3-compatible stores

	// fs driver
	Dir string
}

// CHConfig configures clickhouse connectivity for rollups
type CHConfig struct {
	Enabled  bool
	Addr     string
	Database string
	Username string
	Password string
}
