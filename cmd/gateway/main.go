// Command gateway runs the proxyman-helper dispatcher: a profile-driven
// reverse proxy with block/rule matching in front of an upstream baseUrl.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/eeu479/proxyman-helper/internal/api"
	"github.com/eeu479/proxyman-helper/internal/appstate"
	"github.com/eeu479/proxyman-helper/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	port    string
	dataDir string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gateway",
		Short:         "Profile-driven HTTP dispatcher: block match, rule match, proxy forward.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runServe,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().StringVar(&port, "port", envOr("PORT", "3000"), "port to listen on")
	root.Flags().StringVar(&dataDir, "data-dir", envOr("GATEWAY_DATA_DIR", "./data"), "directory holding profiles.json")
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logrus.WithField("component", "main")

	st, err := store.New(dataDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	state := appstate.New(st)
	router := api.NewRouter(state)

	addr := net.JoinHostPort("127.0.0.1", port)
	log.WithFields(logrus.Fields{"addr": addr, "dataDir": dataDir}).Info("starting gateway")
	if err := http.ListenAndServe(addr, router); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Fatal("gateway exited with error")
	}
}
