package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/sow2grow/ms-go-bestowals/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bestowals",
	Short: "Bestowals microservice",
	Long:  "A community crowdfunding microservice for bestowal orders, payment webhooks, fund distribution, and escrow release.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	return nil
}
