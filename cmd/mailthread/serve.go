package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hal9000y/mailthread/internal/auth"
	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/dashboard"
	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/metrics"
	"github.com/hal9000y/mailthread/internal/search"
	"github.com/hal9000y/mailthread/internal/store"
	"github.com/hal9000y/mailthread/internal/tool"
)

const shutdownGrace = 3 * time.Second

var (
	serveHTTPAddr string
	serveStdio    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the artifacts and serve MCP tools and the dashboard API",
	Long: `Loads and validates the threads, edges and search artifacts, then serves:
  /mcp       MCP streamable HTTP transport
  /api/...   dashboard JSON API
  /metrics   Prometheus metrics
  /oauth     Gmail OAuth flow (when client credentials are configured)
With --stdio the MCP tools are also served on stdin/stdout.

If the artifacts fail validation the HTTP endpoints report the error with
status 503 and nothing is served from them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("http-addr") {
			cfg.Server.HTTPAddr = serveHTTPAddr
		}
		if cmd.Flags().Changed("stdio") {
			cfg.Server.Stdio = serveStdio
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", "", "HTTP listen address (overrides server.http_addr)")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Also serve MCP on stdio")
}

// loadDataset loads the artifacts from the data root. The returned error is
// what the load failure screen shows.
func loadDataset(ctx context.Context, c *config.Config, log *zap.Logger) (*search.Dataset, error) {
	ds, err := search.Load(ctx, store.NewDir(c.Data, log), search.Options{
		Extractors: extract.NewSet(c.Extract.Sites),
		MaxResults: c.Presentation.MaxResults,
		Log:        log,
	})
	if err != nil {
		metrics.LoadFailed()
		return nil, err
	}

	metrics.Loaded(ds.Stats())
	return ds, nil
}

func newMCPServer(ds *search.Dataset, c *config.Config) *mcp.Server {
	return tool.NewServer(ds, extract.NewSet(c.Extract.Sites), tool.Presentation{
		MaskEmails: c.Presentation.MaskEmails,
		MaxResults: c.Presentation.MaxResults,
	})
}

// newMux wires the HTTP endpoints. mcpServer is nil when the load failed;
// oauth is nil when Gmail is not configured.
func newMux(ds *search.Dataset, loadErr error, mcpServer *mcp.Server, oauth http.Handler, c *config.Config, log *zap.Logger) *http.ServeMux {
	var dash *dashboard.Handler
	if ds != nil {
		dash = dashboard.New(ds, nil, c.Presentation, log)
	} else {
		dash = dashboard.New(nil, loadErr, c.Presentation, log)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", dash)
	mux.Handle("/metrics", promhttp.Handler())

	if mcpServer != nil {
		mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return mcpServer }, nil))
	} else {
		mux.Handle("/mcp", dash)
	}

	if oauth != nil {
		mux.Handle("/oauth", oauth)
	}

	return mux
}

func runServe(ctx context.Context, c *config.Config, log *zap.Logger) error {
	ds, loadErr := loadDataset(ctx, c, log)
	if loadErr != nil {
		log.Error("artifacts rejected, serving the load error", zap.Error(loadErr))
		if c.Server.Stdio {
			return fmt.Errorf("loadDataset failed: %w", loadErr)
		}
	}

	var mcpServer *mcp.Server
	if ds != nil {
		mcpServer = newMCPServer(ds, c)
	}

	ln, err := net.Listen("tcp", c.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("net.Listen failed: %w", err)
	}

	var oauth http.Handler
	tok, err := newGmailToken(c, ln.Addr().String(), log)
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		log.Debug("gmail oauth disabled", zap.Error(err))
	case err != nil:
		_ = ln.Close()
		return err
	default:
		oauth = auth.NewHTTPHandler(tok, log)
		defer persistToken(tok, log)
	}

	srv := &http.Server{
		Handler:           newMux(ds, loadErr, mcpServer, oauth, c, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.Serve failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownGrace)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown failed: %w", err)
		}
		log.Info("http server stopped")
		return nil
	})

	if c.Server.Stdio && mcpServer != nil {
		g.Go(func() error {
			defer cancel()

			log.Info("starting stdio transport")
			if err := mcpServer.Run(gctx, &mcp.StdioTransport{}); err != nil && gctx.Err() == nil {
				return fmt.Errorf("mcpServer.Run failed: %w", err)
			}
			log.Info("stdio transport stopped")
			return nil
		})
	}

	return g.Wait()
}

func newGmailToken(c *config.Config, listenAddr string, log *zap.Logger) (*auth.Token, error) {
	oauthCfg, err := auth.OAuthConfig(c.Gmail, listenAddr)
	if err != nil {
		return nil, err
	}

	tok, err := auth.NewToken(oauthCfg, c.Gmail.TokenFile, log)
	if err != nil {
		return nil, fmt.Errorf("auth.NewToken failed: %w", err)
	}

	return tok, nil
}

func persistToken(tok *auth.Token, log *zap.Logger) {
	if err := tok.Persist(); err != nil {
		log.Error("tok.Persist failed", zap.Error(err))
	}
}
