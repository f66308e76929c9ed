package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plugkit/plugkit/kv"
	"github.com/plugkit/plugkit/trigger"
	"github.com/plugkit/plugkit/webhook"
)

var (
	flagAddr         string
	flagDataDir      string
	flagGithubSecret string
	flagSlackSecret  string
	flagHookToken    string
	flagTriggersFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver and trigger dispatcher",
	Long: `Run the webhook receiver, trigger dispatcher, and delivery feed.

Endpoints:
  /hooks/github   - HMAC-SHA256 verified (--github-secret)
  /hooks/slack    - Slack v0 signing verified (--slack-secret)
  /hooks/generic  - shared token verified (--hook-token), open if unset
  /feed           - websocket stream of accepted deliveries

Triggers are loaded from a YAML file: a list of {name, endpoint,
conditions: [{path, op, value}]} entries. Matches are logged.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&flagDataDir, "data-dir", "", "BadgerDB directory for dedup state (default: in-memory)")
	serveCmd.Flags().StringVar(&flagGithubSecret, "github-secret", "", "GitHub webhook secret")
	serveCmd.Flags().StringVar(&flagSlackSecret, "slack-secret", "", "Slack signing secret")
	serveCmd.Flags().StringVar(&flagHookToken, "hook-token", "", "shared token for the generic endpoint")
	serveCmd.Flags().StringVar(&flagTriggersFile, "triggers", "", "YAML file of trigger definitions")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	store, err := openStore(flagDataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	mux, err := webhook.NewMux(0)
	if err != nil {
		return err
	}

	endpoints := []webhook.Endpoint{
		{Name: "generic", Path: "/hooks/generic"},
	}
	if flagHookToken != "" {
		endpoints[0].Verifier = &webhook.TokenVerifier{Token: flagHookToken}
	}
	if flagGithubSecret != "" {
		endpoints = append(endpoints, webhook.Endpoint{
			Name:     "github",
			Path:     "/hooks/github",
			Verifier: &webhook.HMACVerifier{Secret: []byte(flagGithubSecret)},
		})
	}
	if flagSlackSecret != "" {
		endpoints = append(endpoints, webhook.Endpoint{
			Name:     "slack",
			Path:     "/hooks/slack",
			Verifier: &webhook.SlackVerifier{SigningSecret: flagSlackSecret},
		})
	}
	for _, ep := range endpoints {
		if err := mux.Handle(ep); err != nil {
			return err
		}
		slog.Info("endpoint registered", "name", ep.Name, "path", ep.Path)
	}

	dispatcher := trigger.NewDispatcher(store, logMatch)
	if flagTriggersFile != "" {
		triggers, err := loadTriggers(flagTriggersFile)
		if err != nil {
			return err
		}
		for _, t := range triggers {
			if err := dispatcher.Add(t); err != nil {
				return err
			}
			slog.Info("trigger registered", "name", t.Name)
		}
	}
	dispatcher.Bind(mux)

	feed := webhook.NewFeed(nil)
	mux.OnDelivery(feed.Broadcast)

	root := http.NewServeMux()
	root.Handle("/hooks/", mux)
	root.Handle("/feed", feed)

	server := &http.Server{
		Addr:              flagAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", flagAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func openStore(dataDir string) (kv.Store, error) {
	if dataDir == "" {
		return kv.NewMemory(), nil
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: dataDir})
}

func loadTriggers(path string) ([]trigger.Trigger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triggers file: %w", err)
	}
	var triggers []trigger.Trigger
	if err := yaml.Unmarshal(data, &triggers); err != nil {
		return nil, fmt.Errorf("parse triggers file: %w", err)
	}
	return triggers, nil
}

func logMatch(_ context.Context, t trigger.Trigger, d webhook.Delivery) error {
	slog.Info("trigger matched",
		"trigger", t.Name,
		"endpoint", d.Endpoint,
		"delivery", d.ID,
		"received_at", d.ReceivedAt.Format(time.RFC3339),
	)
	return nil
}
