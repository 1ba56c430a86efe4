package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pinky-hr/attendance-engine/internal/app"
	"github.com/pinky-hr/attendance-engine/internal/cli"
	"github.com/pinky-hr/attendance-engine/internal/config"
	"github.com/pinky-hr/attendance-engine/internal/pkg/jwt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := cli.Deps{
		Open: func(ctx context.Context) (*cli.Services, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			a, err := app.New(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return &cli.Services{Sync: a.Sync, Attendance: a.Attendance, Close: a.Close}, nil
		},
		Tokens: func() (jwt.Service, error) {
			cfg, err := config.LoadJWT()
			if err != nil {
				return nil, err
			}
			return jwt.NewJWTService(cfg.Secret, cfg.AccessExpiration), nil
		},
	}

	if err := cli.RootCommand(deps).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
