// Command occupancy-sensor fuses door, motion and bump signals into an
// occupancy status and publishes it, with environmental readings, to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sweeney/occupancy-sensor/internal/config"
	"github.com/sweeney/occupancy-sensor/internal/gpio"
	"github.com/sweeney/occupancy-sensor/internal/logic"
	"github.com/sweeney/occupancy-sensor/internal/mqtt"
	"github.com/sweeney/occupancy-sensor/internal/schedule"
	"github.com/sweeney/occupancy-sensor/internal/sensors"
	"github.com/sweeney/occupancy-sensor/internal/status"
	"github.com/sweeney/occupancy-sensor/internal/web"
)

const appName = "occupancy-sensor"

// eventQueueSize bounds sensor events waiting for the loop.
const eventQueueSize = 64

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format == "text" {
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"version", logic.AppVersion,
		"node", cfg.NodeID,
	)
}

func run(cfg *config.Config) error {
	door, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.Door)
	if err != nil {
		return fmt.Errorf("init door: %w", err)
	}
	defer door.Close()

	if cfg.PrintState {
		closed, err := door.Read()
		if err != nil {
			return fmt.Errorf("read door: %w", err)
		}
		fmt.Printf("door: %s\n", doorString(closed))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := newEventQueue(eventQueueSize)

	var indicator gpio.Indicator = gpio.NopIndicator{}
	if cfg.GPIO.LED >= 0 {
		led, err := gpio.NewRealIndicator(cfg.GPIO.Chip, cfg.GPIO.LED)
		if err != nil {
			return fmt.Errorf("init led: %w", err)
		}
		defer led.Close()
		indicator = led
	}

	watcher, err := gpio.NewRealWatcher(cfg.GPIO.Chip, cfg.GPIO.PIR, cfg.GPIO.Button, gpio.Handlers{
		Motion: func() { queue.push(logic.MotionDetected{}) },
		MotionFault: func(err error) {
			slog.Warn("motion sensor fault", "err", err)
			queue.push(logic.MotionError{})
		},
		Press: func() { queue.push(logic.ButtonPress{}) },
		Hold:  func() { queue.push(logic.ButtonHold{}) },
	})
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	defer watcher.Close()
	go watcher.Watch(ctx, logic.DoorPollInterval)

	if cfg.I2C.Enabled {
		hw, err := sensors.OpenHardware(sensors.HardwareConfig{
			Bus:              cfg.I2C.Bus,
			BME280:           cfg.I2C.BME280,
			OPT3001:          cfg.I2C.OPT3001,
			LIS2DH12:         cfg.I2C.LIS2DH12,
			PositionInterval: cfg.AccelPositionInterval,
		})
		if err != nil {
			// Occupancy still works without the I2C sensors.
			slog.Warn("i2c sensors unavailable", "err", err)
		} else {
			defer hw.Close()
			if hw.Env != nil {
				go hw.Env.Run(ctx, logic.SensorUpdateInterval, queue.push)
			}
			if hw.Accel != nil {
				go hw.Accel.Run(ctx, queue.push)
			}
		}
	}

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID(),
		Prefix:     cfg.TopicPrefix,
		BufferSize: cfg.BufferSize,
	})
	defer publisher.Close()

	engine := logic.NewEngine(time.Now())
	engine.SetNodeID(cfg.NodeID)

	tracker := status.NewTracker(engine.StartTime(), status.Config{
		NodeID:          cfg.NodeID,
		Broker:          cfg.Broker,
		TopicPrefix:     cfg.TopicPrefix,
		HTTPAddr:        cfg.HTTPAddr,
		DoorPollMs:      logic.DoorPollInterval.Milliseconds(),
		KeepaliveMs:     logic.StateUpdateInterval.Milliseconds(),
		AccelPositionMs: cfg.AccelPositionInterval.Milliseconds(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	l := &loop{
		engine:    engine,
		door:      door,
		publisher: publisher,
		conn:      publisher,
		tracker:   tracker,
		indicator: indicator,
		events:    queue,
		now:       time.Now,
	}

	l.start()
	slog.Info("started",
		"broker", cfg.Broker,
		"prefix", cfg.TopicPrefix,
		"door_pin", cfg.GPIO.Door,
		"pir_pin", cfg.GPIO.PIR,
		"i2c", cfg.I2C.Enabled)

	task := schedule.New(logic.DoorPollInterval)
	defer task.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(task, sigCh)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func doorString(closed bool) string {
	if closed {
		return "CLOSED"
	}
	return "OPEN"
}
