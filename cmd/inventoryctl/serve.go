package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	inventorypkg "github.com/goliatone/go-inventory/pkg/inventory"
)

type serveCmd struct {
	Addr   string `default:":8080" env:"INVENTORY_ADDR" help:"Listen address."`
	Base   string `default:"/admin" help:"Path the API is mounted under."`
	Engine string `default:"fiber" enum:"fiber,stdlib" help:"HTTP engine (fiber, stdlib)."`
}

func (cmd *serveCmd) Run(rt *runtime) error {
	if _, ok := rt.app.Session.Identity(); ok || rt.cfg.Mock {
		if err := rt.refresh(); err != nil {
			rt.logger.Warn("initial catalog load failed", zap.Error(err))
		}
	}
	rt.logger.Info("serving inventory API",
		zap.String("addr", cmd.Addr),
		zap.String("base", cmd.Base),
		zap.String("engine", cmd.Engine),
	)
	if cmd.Engine == "stdlib" {
		return cmd.serveStdlib(rt)
	}
	server := router.NewFiberAdapter()
	if err := inventorypkg.RegisterRoutes[*fiber.App](rt.app, server.Router(), cmd.Base); err != nil {
		return fmt.Errorf("inventoryctl: register routes: %w", err)
	}
	if err := server.Serve(cmd.Addr); err != nil {
		return fmt.Errorf("inventoryctl: serve: %w", err)
	}
	return nil
}

func (cmd *serveCmd) serveStdlib(rt *runtime) error {
	srv := &http.Server{
		Addr:              cmd.Addr,
		Handler:           rt.app.Mux(cmd.Base),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("inventoryctl: serve: %w", err)
	case <-rt.ctx.Done():
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("inventoryctl: shutdown: %w", err)
		}
		rt.logger.Info("server stopped")
		return nil
	}
}
