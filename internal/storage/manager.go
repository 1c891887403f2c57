// Package storage selects and constructs the configured storage engine.
package storage

import (
	"fmt"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/storage/badgerdb"
	"github.com/shaharAka/Shaharstocks-sub005/internal/storage/surrealdb"
)

// NewStorageManager returns the storage facade for the configured engine.
// "badger" (the default) runs embedded; "surrealdb" connects to an
// external instance.
func NewStorageManager(config *common.Config, logger *common.Logger) (interfaces.StorageManager, error) {
	switch config.Storage.Engine {
	case "", "badger":
		return badgerdb.NewStore(logger, config.Storage.Path)
	case "surrealdb":
		return surrealdb.NewStore(config, logger)
	default:
		return nil, fmt.Errorf("unknown storage engine '%s'", config.Storage.Engine)
	}
}
