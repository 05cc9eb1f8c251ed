package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/auth"
	"github.com/hal9000y/mailthread/internal/gservice"
	"github.com/hal9000y/mailthread/internal/ingest"
)

const tokenPollInterval = 500 * time.Millisecond

var (
	fetchQuery string
	fetchMax   int64
	fetchBuild bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch messages from Gmail into the records file",
	Long: `Lists the Gmail messages matching the query, converts them into records and
writes the records file. When no token is stored yet, an OAuth flow is
started on the configured HTTP address and the browser is opened.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("query") {
			cfg.Gmail.Query = fetchQuery
		}
		if cmd.Flags().Changed("max") {
			cfg.Gmail.MaxMessages = fetchMax
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		n, err := runFetch(ctx, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "records: %d\n", n)

		if !fetchBuild {
			return nil
		}

		report, err := runBuild(ctx, cfg, sourceJSON, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "messages: %d, threads: %d, edges: %d, rejected: %d, no thread id: %d\n",
			report.Messages, report.Threads, report.Edges, len(report.Rejected), report.NoThread)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchQuery, "query", "q", "", "Gmail search query (overrides gmail.query)")
	fetchCmd.Flags().Int64Var(&fetchMax, "max", 0, "Max messages to fetch (overrides gmail.max_messages)")
	fetchCmd.Flags().BoolVar(&fetchBuild, "build", false, "Run build after fetching")
}

func runFetch(ctx context.Context, log *zap.Logger) (int, error) {
	ln, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		return 0, fmt.Errorf("net.Listen failed: %w", err)
	}
	defer func() { _ = ln.Close() }()

	tok, err := newGmailToken(cfg, ln.Addr().String(), log)
	if err != nil {
		return 0, err
	}
	defer persistToken(tok, log)

	if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrTokenNotSet) {
		if err := authorize(ctx, ln, tok, log); err != nil {
			return 0, err
		}
	}

	src := ingest.NewGmail(gservice.NewGmail(tok), cfg.Gmail, cfg.Data.Encodings, log)

	records, err := src.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("gmail.Records failed: %w", err)
	}

	if err := ingest.WriteJSONFile(cfg.Data.Path(cfg.Data.RecordsFile), records); err != nil {
		return 0, fmt.Errorf("ingest.WriteJSONFile failed: %w", err)
	}

	return len(records), nil
}

// authorize serves the OAuth callback on ln until a token arrives or ctx is
// done.
func authorize(ctx context.Context, ln net.Listener, tok *auth.Token, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/oauth", auth.NewHTTPHandler(tok, log))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("srv.Serve failed: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("srv.Shutdown failed", zap.Error(err))
		}
	}()

	openBrowser(fmt.Sprintf("http://%s/oauth", ln.Addr().String()), log)

	ticker := time.NewTicker(tokenPollInterval)
	defer ticker.Stop()

	errCh := (<-chan error)(serveErr)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for gmail authorization: %w", ctx.Err())
		case err := <-errCh:
			if err != nil {
				return err
			}
			errCh = nil
		case <-ticker.C:
			if _, err := tok.OAuthToken(); err == nil {
				return nil
			}
		}
	}
}

func openBrowser(url string, log *zap.Logger) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Warn("could not open browser automatically, open the link manually", zap.String("url", url), zap.Error(err))
	}
}
