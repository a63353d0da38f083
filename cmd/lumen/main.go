/*
DESCRIPTION
  lumen is a user-session daemon that continuously adjusts display backlight
  brightness to match the user's preference, inferred from the ambient light
  level and the perceived lightness of the screen contents.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the lumen adaptive brightness daemon.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coreos/go-systemd/daemon"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/lumen/als"
	"github.com/ausocean/lumen/brightness"
	"github.com/ausocean/lumen/capture"
	"github.com/ausocean/lumen/config"
	"github.com/ausocean/lumen/luma"
	"github.com/ausocean/lumen/predictor"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logMaxSize   = 50 // MB
	logMaxBackup = 2
	logMaxAge    = 28 // days
	logSuppress  = true
	logEnvVar    = "LUMEN_LOGGING"
)

// Capacity of the channels between the per-output tasks. Consumers keep only
// the newest value on every wakeup.
const chanCapacity = 128

const pkg = "lumen: "

func main() {
	showVersion := flag.Bool("version", false, "show version")
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	log := newLogger()
	log.Info("starting lumen", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(pkg+"could not load config", "error", err.Error())
	}

	alsController, err := newALSController(cfg, log)
	if err != nil {
		log.Fatal(pkg+"could not initialise ambient light source", "error", err.Error())
	}

	store, err := predictor.NewStore()
	if err != nil {
		log.Warning(pkg+"no data directory, learning will not persist", "error", err.Error())
		store = nil
	}

	healthy := 0
	for _, o := range cfg.Outputs {
		if err := startOutput(o, alsController, store, log); err != nil {
			log.Warning(pkg+"skipping output", "output", o.Name, "error", err.Error())
			continue
		}
		log.Info(pkg+"initialised output", "output", o.Name, "kind", o.Kind, "capturer", o.Capturer)
		healthy++
	}
	for _, k := range cfg.Keyboards {
		o := config.Output{
			Kind:      config.OutputBacklight,
			Name:      k.Name,
			Path:      k.Path,
			Capturer:  config.CapturerNone,
			Predictor: config.Predictor{Kind: config.PredictorAdaptive},
		}
		if err := startOutput(o, alsController, store, log); err != nil {
			log.Warning(pkg+"skipping keyboard", "keyboard", k.Name, "error", err.Error())
			continue
		}
		log.Info(pkg+"initialised keyboard", "keyboard", k.Name)
		healthy++
	}

	if healthy == 0 {
		log.Fatal(pkg + "no outputs could be initialised")
	}

	go alsController.Run()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warning(pkg+"could not notify systemd", "error", err.Error())
	}

	log.Info(pkg+"running", "outputs", healthy)

	// The daemon runs until the session ends.
	select {}
}

// newLogger builds the daemon logger: a rotated file in the user's cache
// directory plus stderr, with the level taken from the environment.
func newLogger() logging.Logger {
	level := logging.Info
	switch os.Getenv(logEnvVar) {
	case "debug":
		level = logging.Debug
	case "warning":
		level = logging.Warning
	case "error":
		level = logging.Error
	}

	var sink io.Writer = os.Stderr
	if dir, err := os.UserCacheDir(); err == nil {
		fileLog := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "lumen", "lumen.log"),
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		}
		sink = io.MultiWriter(fileLog, os.Stderr)
	}

	return logging.New(level, sink, logSuppress)
}

// newALSController builds the configured ambient light sensor and its
// polling controller, spawning background capture tasks where the source
// needs them.
func newALSController(cfg *config.Config, log logging.Logger) (*als.Controller, error) {
	thresholds, err := config.ParseThresholds(cfg.ALS.Thresholds)
	if err != nil {
		return nil, err
	}

	var sensor als.Sensor
	switch cfg.ALS.Kind {
	case config.ALSIIO:
		sensor, err = als.NewIIO(cfg.ALS.Path, thresholds)
		if err != nil {
			return nil, err
		}
	case config.ALSTime:
		sensor = als.NewTimeOfDay(thresholds)
	case config.ALSWebcam:
		ch := make(chan uint64, chanCapacity)
		go als.NewWebcamCapture(ch, cfg.ALS.Video, cfg.ALS.SleepMS, log).Run()
		sensor = als.NewWebcam(ch, thresholds)
	case config.ALSCmd:
		ch := make(chan uint64, chanCapacity)
		go als.NewCmdCapture(ch, cfg.ALS.Command, log).Run()
		sensor = als.NewCmd(ch, thresholds)
	default:
		sensor = als.None{}
	}

	log.Debug(pkg+"ambient light source ready", "kind", sensor.Name())
	return als.NewController(sensor, log), nil
}

// startOutput wires and spawns the three per-output tasks: the brightness
// controller, the predictor and the capturer.
func startOutput(o config.Output, alsController *als.Controller, store *predictor.Store, log logging.Logger) error {
	var actuator brightness.Actuator
	var err error
	switch o.Kind {
	case config.OutputBacklight:
		actuator, err = brightness.NewBacklight(o.Path, o.MinBrightness, log)
	case config.OutputDDC:
		actuator, err = brightness.NewDDC(o.Name, o.MinBrightness, log)
	}
	if err != nil {
		return fmt.Errorf("no usable device: %w", err)
	}

	userEdits := make(chan uint64, chanCapacity)
	predictions := make(chan uint64, chanCapacity)
	alsBuckets := alsController.Subscribe()

	var pred predictor.Predictor
	switch o.Predictor.Kind {
	case config.PredictorManual:
		thresholds, err := config.ManualThresholds(o.Predictor.Thresholds)
		if err != nil {
			return err
		}
		pred = predictor.NewManual(predictions, userEdits, alsBuckets, thresholds, o.Name, log)
	default:
		pred = predictor.NewAdaptive(predictions, userEdits, alsBuckets, store, o.Name, log)
	}

	if o.Capturer == config.CapturerNone {
		go capture.NewNone(pred).Run()
	} else {
		source, err := capture.NewSource(o.Capturer, o.Name, log)
		if err != nil {
			return fmt.Errorf("no frame source: %w", err)
		}
		processor, err := luma.NewVulkan(log)
		if err != nil {
			source.Close()
			return fmt.Errorf("no GPU pipeline: %w", err)
		}
		go capture.New(source, processor, pred, o.Name, log).Run()
	}

	go brightness.NewController(actuator, userEdits, predictions, o.Name, log).Run()

	return nil
}
