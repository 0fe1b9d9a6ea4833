package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edgeo/bacnet-router/config"
	"github.com/edgeo/bacnet-router/metrics"
	"github.com/edgeo/bacnet-router/mstp"
	"github.com/edgeo/bacnet-router/npdu"
	"github.com/edgeo/bacnet-router/nvstore"
	"github.com/edgeo/bacnet-router/router"
	"github.com/edgeo/bacnet-router/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the router daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func runDaemon(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := nvstore.OpenBoltStore(cfg.NVStorePath)
	if err != nil {
		return fmt.Errorf("open non-volatile store: %w", err)
	}
	defer store.Close()

	reg := metrics.NewRegistry()

	routerID, err := nvstore.EnsureRouterID(store)
	if err != nil {
		return fmt.Errorf("load router identity: %w", err)
	}
	logger = logger.With(slog.String("router_id", routerID))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	ports := make([]*router.Port, 0, len(cfg.Ports))
	var physicalRunners []func(context.Context) error

	for i, pc := range cfg.Ports {
		id := npdu.PortID(i + 1)
		switch pc.Kind {
		case config.PortBIP:
			p, run, err := buildBIPPort(id, pc)
			if err != nil {
				return fmt.Errorf("port %q: %w", pc.Name, err)
			}
			ports = append(ports, p)
			physicalRunners = append(physicalRunners, run)
		case config.PortMSTP:
			p, run, err := buildMSTPPort(id, pc)
			if err != nil {
				return fmt.Errorf("port %q: %w", pc.Name, err)
			}
			ports = append(ports, p)
			physicalRunners = append(physicalRunners, run)
		}
	}

	rtr := router.NewRouter(ports, 0, cfg.MailboxDepth, logger)

	for i, p := range ports {
		p := p
		runPhysical := physicalRunners[i]
		g.Go(func() error { return runPhysical(gctx) })
		g.Go(func() error { router.RunWorker(gctx, p, rtr.MainBox, logger); return nil })
	}

	g.Go(func() error { rtr.Run(gctx); return nil })

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: reg.Handler()}
		g.Go(func() error {
			logger.Info("metrics listening", slog.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("router started", slog.Int("ports", len(ports)))
	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func buildBIPPort(id npdu.PortID, pc config.PortConfig) (*router.Port, func(context.Context) error, error) {
	tr := transport.NewUDPTransport(pc.BindAddress)
	dl := &transport.BIPDatalink{T: tr, Port: 47808, PollTimeout: 10 * time.Millisecond}
	p := router.NewPort(id, router.DLTypeBIP, pc.BindAddress, pc.LocalNet, nil, dl, 0, 64)

	run := func(ctx context.Context) error {
		if err := tr.Open(ctx); err != nil {
			return fmt.Errorf("open BACnet/IP socket: %w", err)
		}
		<-ctx.Done()
		return tr.Close()
	}
	return p, run, nil
}

func buildMSTPPort(id npdu.PortID, pc config.PortConfig) (*router.Port, func(context.Context) error, error) {
	baud := pc.BaudRate
	if baud == 0 {
		baud = 38400
	}
	serial, err := mstp.OpenSerialPort(pc.Device, baud)
	if err != nil {
		return nil, nil, fmt.Errorf("open serial device %s: %w", pc.Device, err)
	}

	dl := mstp.NewNodeDatalink(pc.ThisStation, pc.MaxMaster, pc.MaxInfoFrames, serial, serial, serial.Close)
	p := router.NewPort(id, router.DLTypeMSTP, pc.Device, pc.LocalNet, []byte{pc.ThisStation}, dl, 0, 64)

	run := func(ctx context.Context) error { return dl.Port.Run(ctx) }
	return p, run, nil
}
