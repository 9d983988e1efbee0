// Package database provides the GORM connection used by the file catalog and
// the relational share-link store: connection retry, pooling, a zerolog
// backed GORM logger, transactions, auto-migration and the translation of
// GORM errors into AppErrors.
//
// The driver is SQLite (gorm.io/driver/sqlite). A DSN of ":memory:" gives a
// private in-memory database; file DSNs enable WAL and a busy timeout so
// concurrent writers serialize instead of failing.
//
//	comp := database.NewComponent(cfg.Database, log).
//	    WithAutoMigrate(&catalog.FileRecord{}, &catalog.FolderRecord{})
package database
