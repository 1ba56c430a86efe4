// Package cli holds the attendancectl command tree.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/pkg/jwt"
)

// Services are the backends a command runs against.
type Services struct {
	Sync       synclog.SyncService
	Attendance attendance.AttendanceService
	Close      func()
}

type Deps struct {
	// Open connects to storage. Commands call it lazily so token issuance
	// works without a database.
	Open func(ctx context.Context) (*Services, error)
	// Tokens returns the operator token issuer.
	Tokens func() (jwt.Service, error)
}

// RootCommand creates and returns the root command
func RootCommand(deps Deps) *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "attendancectl",
		Short:         "Attendance engine operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		syncCommand(deps),
		recalculateCommand(deps),
		cleanupCommand(deps),
		tokenCommand(deps),
	)
	return rootCmd
}

// withServices opens the backends for the duration of fn.
func withServices(ctx context.Context, deps Deps, fn func(*Services) error) error {
	svc, err := deps.Open(ctx)
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(svc)
}
