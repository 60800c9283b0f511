// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/efficientgo/core/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	ingenicboot "github.com/shiv50084/ingenic-boot"
)

var logger *logrus.Logger

func initLogger() {
	formatter := &prefixed.TextFormatter{
		DisableColors:   false,
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}

	logger = logrus.New()

	logger.SetFormatter(formatter)
	logger.SetOutput(os.Stdout)
}

func initConfig() error {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] STAGE1_FILE STAGE2_FILE\n  %s [OPTIONS] --stage N FILE\nOptions:\n",
			os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}

	cfgFile := flag.StringP("config", "c", "", "Path to the board config file.")
	flag.IntP("stage", "s", 0, "Loader stage to upload (1 or 2). 0 boots both stages.")
	flag.String("log-level", logrus.InfoLevel.String(), "Log level (trace, debug, info, warn, error).")
	flag.Duration("timeout", ingenicboot.DefaultTimeout, "Timeout applied to every USB transfer.")
	flag.StringSlice("devices", nil, "Allowed VID:PID pairs, defaults to the known XBurst ids.")

	flag.Parse()
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	if *cfgFile != "" {
		viper.SetConfigFile(*cfgFile)
	} else {
		viper.SetConfigName("usbboot")
		viper.AddConfigPath("/etc/xburst-tools/")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("INGENIC_BOOT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return nil
}

// Main is the principal function for the binary, wrapped only by `main` for convenience.
func Main() error {
	if err := initConfig(); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}

	logger.SetLevel(level)
	ingenicboot.SetLogger(logger)

	board, err := ingenicboot.LoadBoardConfig(viper.GetViper())
	if err != nil {
		return errors.Wrap(err, "invalid board config")
	}

	args, err := board.FirmwareArgs()
	if err != nil {
		return errors.Wrap(err, "invalid board config")
	}

	allowlist, err := ingenicboot.LoadAllowlist(viper.GetViper())
	if err != nil {
		return errors.Wrap(err, "invalid device list")
	}

	stage := ingenicboot.Stage(viper.GetInt("stage"))
	files := flag.Args()

	switch {
	case stage == 0 && len(files) == 2:
	case (stage == ingenicboot.Stage1 || stage == ingenicboot.Stage2) && len(files) == 1:
	default:
		flag.Usage()
		return fmt.Errorf("wrong number of files for stage %d", stage)
	}

	bus, err := ingenicboot.NewUsbBus(ingenicboot.LoadTimeout(viper.GetViper()))
	if err != nil {
		return err
	}
	defer bus.Close()

	session, err := ingenicboot.Open(bus, ingenicboot.NewSessionConfig(allowlist, args))
	if err != nil {
		return errors.Wrap(err, "could not open XBurst device")
	}
	defer session.Close()

	if stage == 0 {
		if err := session.Boot(files[0], files[1]); err != nil {
			return errors.Wrap(err, "boot failed")
		}

		logger.Info("XBurst device booted")
		return nil
	}

	identity, err := session.Identify()
	if err != nil {
		return errors.Wrap(err, "could not identify XBurst device")
	}

	logger.Debugf("device reports %s before stage %d", identity, stage)

	if err := session.LoadStage(files[0], stage); err != nil {
		return errors.Wrapf(err, "stage %d failed", stage)
	}

	logger.Infof("stage %d running", stage)
	return nil
}

func main() {
	initLogger()

	if err := Main(); err != nil {
		logger.Errorf("Execution failed: %v", err)
		os.Exit(1)
	}
}
