// Package modkit provides module wiring and core deps
package modkit

import (
	"vitals/internal/modkit/repokit"
	"vitals/internal/platform/config"
	"vitals/internal/platform/logger"
	"vitals/internal/platform/store/ch"
	"vitals/internal/platform/store/kv"
	"vitals/internal/platform/store/obj"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	KV  kv.KV
	Obj obj.Store
	CH  *ch.CH
}
