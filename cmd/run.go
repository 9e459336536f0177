package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	appcfg "github.com/ca-srg/greetbot/internal/config"
	"github.com/ca-srg/greetbot/internal/observability"
	"github.com/ca-srg/greetbot/internal/slackbot"
)

var (
	runDebug   bool
	runEnvFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Slack bot in Socket Mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appcfg.LoadDotEnv(runEnvFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", runEnvFile, err)
		}
		scfg, err := appcfg.LoadSlack()
		if err != nil {
			return fmt.Errorf("failed to load slack config: %w", err)
		}
		if runDebug {
			scfg.Debug = true
		}
		otelCfg, err := appcfg.LoadOTel()
		if err != nil {
			return err
		}
		shutdown, err := observability.Init(otelCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("observability shutdown: %v", err)
			}
		}()

		logger := log.New(os.Stdout, "greetbot ", log.LstdFlags)
		app, err := slackbot.NewApp(scfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := app.Identify(ctx); err != nil {
			return err
		}
		bot, err := slackbot.NewSocketBot(app)
		if err != nil {
			return err
		}

		logger.Printf("Starting Slack Bot (Socket Mode) (events=%s)...", strings.Join(app.Router.Kinds(), ","))
		if err := bot.Start(ctx); err != nil {
			return err
		}
		logger.Println("received shutdown signal")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Log Slack API and Socket Mode traffic (overrides SLACK_DEBUG)")
	runCmd.Flags().StringVar(&runEnvFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")
}
