package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flightctl/flightctl/internal/config"
	"github.com/flightctl/flightctl/internal/influx"
	"github.com/flightctl/flightctl/internal/logging"
	"github.com/flightctl/flightctl/internal/storage"
	gormstorage "github.com/flightctl/flightctl/internal/storage/gorm"
	"github.com/flightctl/flightctl/internal/storage/memory"
	sqlitestorage "github.com/flightctl/flightctl/internal/storage/sqlite"
	wsstorage "github.com/flightctl/flightctl/internal/storage/websocket"
)

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	tag := config.GetString("defaultTag")

	switch storageCfg.Type {
	case "", "memory":
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return gormstorage.New(gormstorage.Dependencies{
			LogManager: SlogManager,
			Tag:        tag,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, tag, SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "outputDir", storageCfg.SQLite.OutputDir)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.WebSocket
		if wsCfg.URL == "" {
			wsCfg.URL = httpToWS(config.GetString("api.serverUrl")) + "/api/v1/stream"
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = config.GetString("api.apiKey")
		}
		Logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, tag, Logger), nil

	case "influx":
		if !config.GetBool("influx.enabled") {
			return nil, fmt.Errorf("storage type influx: %w", influx.ErrDisabled)
		}
		backupDir := config.GetString("influx.backupDir")
		if err := os.MkdirAll(backupDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create influx backup directory: %w", err)
		}
		backupPath := filepath.Join(backupDir, fmt.Sprintf("%s_influx_%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405")))
		manager := influx.NewManager(logging.NewZerolog(logSink(), config.GetString("logLevel"), "influx"), backupPath)
		Logger.Info("InfluxDB storage backend initialized", "url", influx.ServerURL(), "backup", backupPath)
		return influx.NewBackend(manager, tag), nil

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
