package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/keepmind9/glipbot/internal/core"
	"github.com/keepmind9/glipbot/internal/glip"
	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	echoMode   bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the glipbot relay",
		Long:  "Start the glipbot relay: connect to the platform, subscribe to new posts and dispatch them to the runtime",
		Run: func(cmd *cobra.Command, args []string) {
			// Pick up credentials from .env when present; config values
			// reference them via ${VAR} expansion
			if err := godotenv.Load(); err == nil {
				fmt.Println("Loaded environment from .env")
			}

			// Load configuration
			config, err := core.LoadConfig(configFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			fmt.Printf("Starting glipbot with config: %s\n", configFile)
			fmt.Printf("Platform server: %s\n", config.Identity.Server)

			// Initialize logger
			logConfig := logger.Config{
				Level:            config.Logging.Level,
				File:             config.Logging.File,
				MaxSize:          config.Logging.MaxSize,
				MaxBackups:       config.Logging.MaxBackups,
				MaxAge:           config.Logging.MaxAge,
				Compress:         config.Logging.Compress,
				EnableStdout:     config.Logging.EnableStdout,
				SuppressMessages: config.Logging.SuppressMessages,
			}
			if err := logger.InitLogger(logConfig); err != nil {
				log.Fatalf("Failed to initialize logger: %v", err)
			}

			logger.WithFields(logrus.Fields{
				"config_file": configFile,
				"log_level":   config.Logging.Level,
			}).Info("Logger initialized")

			// Create engine
			engine, err := core.NewEngine(config)
			if err != nil {
				log.Fatalf("Failed to create engine: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			engine.OnMessage(func(msg glip.Message) {
				logger.WithFields(logrus.Fields{
					"group_id":  msg.Room.ID,
					"sender_id": msg.Sender.ID,
					"sender":    msg.Sender.FullName(),
					"length":    len(msg.Body),
				}).Info("message-received")

				if echoMode {
					if err := engine.Reply(ctx, msg, msg.Body); err != nil {
						logger.WithField("error", err).Warn("echo-reply-failed")
					}
				}
			})

			// Graceful shutdown on interrupt
			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-signals
				logger.WithField("signal", sig.String()).Info("shutdown-signal-received")
				cancel()
			}()

			if err := engine.Run(ctx); err != nil {
				log.Fatalf("Engine exited with error: %v", err)
			}
			fmt.Println("glipbot stopped")
		},
	}
)

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to configuration file")
	startCmd.Flags().BoolVar(&echoMode, "echo", false, "Reply to every inbound message with its own text (smoke test)")
}
