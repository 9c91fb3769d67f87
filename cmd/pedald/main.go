package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/pedals/pkg/config"
	"github.com/itohio/pedals/pkg/logger"
	"github.com/itohio/pedals/pkg/messaging"
	"github.com/itohio/pedals/pkg/pedalbox"
	"github.com/itohio/pedals/pkg/service"
)

func main() {
	var (
		configFlag = flag.String("config", "pedals-service.yaml", "Configuration file path")
		portFlag   = flag.String("p", "", "Serial port override (e.g., /dev/ttyACM0)")
		mockFlag   = flag.Bool("mock", false, "Use simulated pedals instead of the ADC board")
		logFlag    = flag.Int("log", -1, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG), overrides config")
		noRedis    = flag.Bool("no-redis", false, "Run without the Redis transport")
	)
	flag.Parse()

	boot := logger.NewStd(logger.LogLevelInfo)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		boot.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Device.Port = *portFlag
	}
	if *mockFlag {
		cfg.Device.Kind = config.DeviceMock
	}
	if *logFlag >= 0 {
		cfg.Log.Level = *logFlag
	}
	if *noRedis {
		cfg.Redis.Enabled = false
	}

	l := logger.NewStd(logger.LogLevel(cfg.Log.Level))
	l.Infof("Starting pedal service...")

	dev, err := pedalbox.NewDevice(cfg, l)
	if err != nil {
		l.Fatalf("Failed to create ADC device: %v", err)
	}
	box, err := pedalbox.New(cfg, dev, l)
	if err != nil {
		l.Fatalf("Failed to start pedal box: %v", err)
	}
	defer box.Close()

	var pub service.Publisher
	if cfg.Redis.Enabled {
		redis := messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l, messaging.Callbacks{
			ConfigCallback:    box.Service.HandleConfigCommand,
			ProfileCallback:   box.Service.HandleProfileCommand,
			CalibrateCallback: box.Service.HandleCalibrateCommand,
		})
		if err := redis.Connect(); err != nil {
			l.Warnf("Continuing without Redis: %v", err)
			redis.Close()
		} else {
			redis.StartListening()
			defer redis.Close()
			pub = redis
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Infof("System started successfully")
	if err := box.Run(ctx, pub); err != nil {
		l.Errorf("Sampling stopped: %v", err)
	}
	l.Infof("Shutdown complete")
}
