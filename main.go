package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	cli "github.com/jawher/mow.cli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gesture-capture/pkg/api"
	"gesture-capture/pkg/camera"
	"gesture-capture/pkg/capture"
	"gesture-capture/pkg/config"
	"gesture-capture/pkg/loop"
	"gesture-capture/pkg/stream"
	"gesture-capture/pkg/utils"
)

const (
	appName = "gesture-capture"
	appDesc = "camera capture session for the gesture authentication dashboard"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

func main() {
	defer logger.Sync()

	app := cli.App(appName, appDesc)

	configPath := app.String(cli.StringOpt{
		Name:   "c config",
		Desc:   "yaml config file",
		EnvVar: "GESTURE_CAPTURE_CONFIG",
		Value:  "",
	})
	addr := app.String(cli.StringOpt{
		Name:   "addr",
		Desc:   "http listen address, overrides server.addr",
		EnvVar: "GESTURE_CAPTURE_ADDR",
	})
	driver := app.String(cli.StringOpt{
		Name:   "driver",
		Desc:   "camera driver, overrides camera.driver",
		EnvVar: "GESTURE_CAPTURE_DRIVER",
	})
	device := app.String(cli.StringOpt{
		Name:   "d dev",
		Desc:   "video device path, overrides camera.device",
		EnvVar: "GESTURE_CAPTURE_DEVICE",
	})
	level := app.String(cli.StringOpt{
		Name:   "log-level",
		Desc:   "debug, info, warn or error, overrides log.level",
		EnvVar: "GESTURE_CAPTURE_LOG_LEVEL",
	})
	autoActivate := app.Bool(cli.BoolOpt{
		Name:   "activate",
		Desc:   "start acquisition on startup",
		EnvVar: "GESTURE_CAPTURE_ACTIVATE",
	})

	app.Action = func() {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal(err)
		}
		if *addr != "" {
			cfg.Server.Addr = *addr
		}
		if *driver != "" {
			cfg.Camera.Driver = *driver
		}
		if *device != "" {
			cfg.Camera.Device = *device
		}
		if *level != "" {
			cfg.Log.Level = *level
		}
		if *autoActivate {
			cfg.Session.AutoActivate = true
		}
		if err := cfg.Validate(); err != nil {
			logger.Fatal(err)
		}
		if err := utils.SetLevel(cfg.Log.Level); err != nil {
			logger.Fatal(err)
		}
		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		if err := run(cfg); err != nil {
			logger.Fatal(err)
		}
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func run(cfg config.Config) error {
	opener, err := camera.NewOpener(cfg.Camera.Driver, cfg.CameraOptions())
	if err != nil {
		return err
	}

	lp := loop.New()
	defer lp.Close()

	hub := stream.NewHub()
	session := capture.New(lp, opener, hub.Publish, cfg.Capture())
	logger.Infof("session %s: driver %s, %s", session.ID(), cfg.Camera.Driver, cfg.Capture().Constraints)

	ctx, cancel := utils.WatchSignal(context.Background())
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("listening on %s", cfg.Server.Addr)
		return utils.ListenAndServe(ctx, api.New(session, hub).Router(cfg.Server.Origins), cfg.Server.Addr)
	})
	group.Go(func() error {
		<-ctx.Done()
		session.Teardown()
		hub.Close()
		logger.Info("session torn down")
		return nil
	})

	if cfg.Session.AutoActivate {
		session.Activate()
	}

	return group.Wait()
}
