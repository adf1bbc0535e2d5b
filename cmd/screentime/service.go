package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goodtune/screentime/internal/systemd"
	"github.com/kardianos/service"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const serviceName = "screentime"

// program adapts the daemon to the service manager lifecycle
type program struct {
	daemon *daemon
	logger zerolog.Logger
	hup    chan os.Signal
}

func (p *program) Start(s service.Service) error {
	if p.daemon == nil {
		return fmt.Errorf("service is not configured to run")
	}
	if err := p.daemon.start(); err != nil {
		return err
	}

	p.hup = make(chan os.Signal, 1)
	signal.Notify(p.hup, syscall.SIGHUP)
	go func() {
		for range p.hup {
			p.logger.Info().Msg("Received SIGHUP, saving current usage...")
			p.daemon.flush()
		}
	}()

	if err := systemd.NotifyReady(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to notify systemd of readiness")
	}
	p.logger.Info().Msg("screentime service started")
	return nil
}

func (p *program) Stop(s service.Service) error {
	if err := systemd.NotifyStopping(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to notify systemd of stopping")
	}
	if p.hup != nil {
		signal.Stop(p.hup)
		close(p.hup)
	}
	if p.daemon != nil {
		p.daemon.shutdown()
	}
	p.logger.Info().Msg("screentime service stopped")
	return nil
}

// serviceConfig describes the per-user login service
func serviceConfig(configPath string) *service.Config {
	args := []string{"run"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		args = append(args, "--config", configPath)
	}

	return &service.Config{
		Name:        serviceName,
		DisplayName: "Screen Time Monitor",
		Description: "Tracks how long each application stays in the foreground",
		Arguments:   args,
		Option: service.KeyValue{
			"UserService": true,
		},
	}
}

func newService(prg *program) (service.Service, error) {
	return service.New(prg, serviceConfig(configPath))
}

// serviceInstalled reports whether screentime is registered to start at login
func serviceInstalled(s service.Service) bool {
	status, err := s.Status()
	return err == nil && status != service.StatusUnknown
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the background service",
	Long:  `Install, start, stop, uninstall or inspect the per-user background service.`,
}

func init() {
	serviceCmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install and start the background service",
			Args:  cobra.NoArgs,
			RunE:  withService(installService),
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the background service",
			Args:  cobra.NoArgs,
			RunE: withService(func(cmd *cobra.Command, s service.Service) error {
				if err := s.Start(); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Service started.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the background service",
			Args:  cobra.NoArgs,
			RunE: withService(func(cmd *cobra.Command, s service.Service) error {
				if err := s.Stop(); err != nil {
					return fmt.Errorf("failed to stop service: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Service stopped.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Stop and remove the background service",
			Args:  cobra.NoArgs,
			RunE: withService(func(cmd *cobra.Command, s service.Service) error {
				_ = s.Stop() // may already be stopped
				if err := s.Uninstall(); err != nil {
					return fmt.Errorf("failed to uninstall service: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the background service status",
			Args:  cobra.NoArgs,
			RunE: withService(func(cmd *cobra.Command, s service.Service) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Service status: %s\n", describeStatus(s.Status()))
				return nil
			}),
		},
	)
	rootCmd.AddCommand(serviceCmd)
}

func withService(fn func(cmd *cobra.Command, s service.Service) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newService(&program{})
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		return fn(cmd, s)
	}
}

func installService(cmd *cobra.Command, s service.Service) error {
	if err := s.Install(); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}
	if err := s.Start(); err != nil {
		return fmt.Errorf("service installed but failed to start: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Service installed and started.")
	return nil
}

func describeStatus(status service.Status, err error) string {
	if err != nil {
		return fmt.Sprintf("not installed or error (%v)", err)
	}
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
