package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	rest "github.com/xompass/vsaas-joins"
	"github.com/xompass/vsaas-joins/helpers"
)

var (
	servePort      uint16
	servePrefix    string
	serveRateLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the declared joins over HTTP",
	Long: `Serve the declared joins over HTTP. When API_TOKEN is set, every request
must carry it as a bearer token.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			fatal("Error opening datasource", err)
		}

		options := rest.RestAppOptions{
			Name:              "vsaas-joins",
			Port:              servePort,
			Datasource:        rt.datasource,
			Catalog:           rt.catalog,
			LogLevel:          logger.Level,
			EnableRateLimiter: serveRateLimit > 0,
		}
		if serveRateLimit > 0 {
			options.JoinRateLimit = &rest.RateLimit{Max: serveRateLimit, Window: time.Minute}
		}
		if token := helpers.GetEnv("API_TOKEN", ""); token != "" {
			options.Authorizer = rest.StaticTokenAuthorizer(token, rest.StaticPrincipal{ID: "api", Role: "api"})
		}

		app := rest.NewRestApp(options)
		if err := app.RegisterJoinEndpoints(app.Group(servePrefix)); err != nil {
			fatal("Error registering endpoints", err)
		}

		go func() {
			if err := app.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("Server error", err)
			}
		}()

		<-ctx.Done()
		logger.Infof("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Shutdown: %v", err)
		}
		if err := app.Destroy(shutdownCtx); err != nil {
			logger.Errorf("Destroy: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Uint16Var(&servePort, "port", helpers.GetEnvUint16("PORT", 3000), "Port to listen on")
	serveCmd.Flags().StringVar(&servePrefix, "prefix", "/api", "Path prefix of the endpoints")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 0, "Requests per minute and client on each join endpoint, counted in Redis (0 disables)")
}
