package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCommand(opts *globalOptions) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the readiness endpoint of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				cfg, err := opts.loader().Load()
				if err != nil {
					return err
				}
				host := cfg.Server.Host
				if host == "" || host == "0.0.0.0" {
					host = "127.0.0.1"
				}
				url = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
			}
			return checkHealth(cmd.Context(), cmd.OutOrStdout(), url, timeout)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "server base URL (default derived from the server config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func checkHealth(ctx context.Context, out io.Writer, baseURL string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.TrimSpace(string(body)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server is unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
