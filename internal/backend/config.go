package backend

import (
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.DataBackend)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         storeType,
		DataFilePath: appConfig.DataFilePath,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQP: amqp.Config{
			URL:           appConfig.AMQPURL,
			Exchange:      appConfig.AMQPExchange,
			SyncQueue:     appConfig.AMQPSyncQueue,
			ReminderQueue: appConfig.AMQPReminderQueue,
		},
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleSheetPrefix:        appConfig.GoogleSheetPrefix,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case FileStore:
		if c.DataFilePath == "" {
			return fmt.Errorf("data file path is required for file backend")
		}
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	}
	return nil
}

// GetStoreTypes returns all valid store types
func GetStoreTypes() []StoreType {
	return []StoreType{MemoryStore, FileStore, SQLiteStore}
}
