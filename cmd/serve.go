// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bo3bdo/kms-server/internal/catalog"
	"github.com/bo3bdo/kms-server/internal/events"
	"github.com/bo3bdo/kms-server/internal/session"
	"github.com/bo3bdo/kms-server/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the KMS emulator",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return serveCmdLoadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmdInit()
}

// serveCmdInit declares the serve subcommand's flags. init() calls it
// once; a second call would redefine the flags.
func serveCmdInit() {
	d := defaultAppConfig()
	serveCmd.Flags().String("server-ip", d.Server.IP, "Listen address")
	serveCmd.Flags().Int("server-port", d.Server.Port, "Listen port")
	serveCmd.Flags().String("store-driver", d.Store.Driver, "Activation store driver (sqlite|postgres)")
	serveCmd.Flags().String("store-dsn", d.Store.DSN, "Activation store DSN (sqlite file path, or empty for in-memory)")
	serveCmd.Flags().String("hwid", d.KMS.HWID, `8-byte hex host identity, or "RANDOM" to generate one at startup`)
	serveCmd.Flags().String("catalog-overrides", "", "Path to a catalog overrides file")
	serveCmd.Flags().String("log-level", d.Log.Level, "Event log level: MINIMAL, INFO or DEBUG")
}

var appConfig AppConfig

// serveCmdLoadConfig layers defaults, an optional --config file, and
// explicit flags (highest precedence) into AppConfig. The config file
// is decoded through viper's mapstructure-backed Unmarshal, so nested
// sections like kms/admission need no matching flag to be
// configurable.
func serveCmdLoadConfig(cmd *cobra.Command) error {
	configFilePath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return err
	}

	appConfig = defaultAppConfig()
	if configFilePath != "" {
		slog.Debug("loading KMS server configuration file", "path", configFilePath)
		viper.SetConfigFile(configFilePath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("configuration file read failed: %w", err)
		}
		if err := viper.Unmarshal(&appConfig); err != nil {
			return fmt.Errorf("decode configuration file: %w", err)
		}
	}

	// Explicit flags win over both the config file and the defaults
	// above; flags left at their default are never applied over a
	// value the config file already set.
	flags := cmd.Flags()
	if flags.Changed("server-ip") {
		appConfig.Server.IP, _ = flags.GetString("server-ip")
	}
	if flags.Changed("server-port") {
		appConfig.Server.Port, _ = flags.GetInt("server-port")
	}
	if flags.Changed("store-driver") {
		appConfig.Store.Driver, _ = flags.GetString("store-driver")
	}
	if flags.Changed("store-dsn") {
		appConfig.Store.DSN, _ = flags.GetString("store-dsn")
	}
	if flags.Changed("hwid") {
		appConfig.KMS.HWID, _ = flags.GetString("hwid")
	} else if appConfig.KMS.HWID == "" {
		appConfig.KMS.HWID, _ = flags.GetString("hwid")
	}
	if flags.Changed("catalog-overrides") {
		appConfig.CatalogOverrides, _ = flags.GetString("catalog-overrides")
	}
	if flags.Changed("log-level") {
		appConfig.Log.Level, _ = flags.GetString("log-level")
	}

	level, err := events.ParseLevel(appConfig.Log.Level)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logLevel.Set(level)
	return nil
}

func runServe(ctx context.Context) error {
	kmsCfg, err := appConfig.toKMSConfig()
	if err != nil {
		return err
	}

	cat := catalog.Default()
	if appConfig.CatalogOverrides != "" {
		override, err := catalog.LoadOverride(appConfig.CatalogOverrides)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cat = cat.Merge(override)
	}

	dsn := appConfig.Store.DSN
	if dsn == "" && appConfig.Store.Driver == "sqlite" {
		dsn = ":memory:"
	}
	recordStore, err := store.Open(appConfig.Store.Driver, dsn)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer recordStore.Close()

	ln, err := net.Listen("tcp", kmsCfg.ListenAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	slog.Info("listening", "addr", ln.Addr().String(), "hwid_ephemeral", kmsCfg.Host.Ephemeral)

	engine := session.New(&kmsCfg, cat, recordStore, slog.Default())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return engine.Serve(ctx, ln)
}
