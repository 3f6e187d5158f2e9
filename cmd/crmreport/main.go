// crmreport renders CRM analytics results as PDF reports.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/crmreport/api"
	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/datasource"
	"github.com/seenimoa/crmreport/internal/infra"
	"github.com/seenimoa/crmreport/internal/llm"
	"github.com/seenimoa/crmreport/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg *config.Config
	log *logrus.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crmreport",
	Short: "Render CRM analytics results as PDF reports",
	Long: `crmreport turns the answer, rationale and key metrics of a CRM
service-request analysis into a formatted PDF report with narrative
sections, metric charts and supporting-data visualizations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if dirs, _ := cmd.Flags().GetStringSlice("data-dir"); len(dirs) > 0 {
			cfg.Data.Dirs = dirs
		}
		log = infra.NewLogger(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSlice("data-dir", nil, "directories holding product datasets (overrides data.dirs)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// ── wiring ──

// newRouter returns the configured text-generation router, or nil when
// generation is off or no provider has credentials.
func newRouter(noLLM bool) *llm.Router {
	if noLLM {
		return nil
	}
	router, err := llm.NewRouterFromConfig(cfg.LLM, log)
	if err != nil {
		if !errors.Is(err, llm.ErrNoProviders) {
			log.WithError(err).Warn("text generation unavailable")
		}
		return nil
	}
	return router
}

// newGenerator wires the configured sources and provider into a report
// generator.
func newGenerator(noLLM bool) (*report.Generator, datasource.Source, *datasource.Catalog, error) {
	src, cat, err := datasource.New(cfg.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("data sources: %w", err)
	}
	var p llm.LLMProvider
	if router := newRouter(noLLM); router != nil {
		p = router
	}
	return report.FromConfig(cfg, p, src, cat, log), src, cat, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(titleStyle.Render("crmreport " + version))
		fmt.Println(kv("commit", commit))
		fmt.Println(kv("built", date))
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		noLLM, _ := cmd.Flags().GetBool("no-llm")
		gen, src, cat, err := newGenerator(noLLM)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		srv := api.NewServer(cfg, gen,
			api.WithSource(src, cat),
			api.WithLogger(log),
			api.WithVersion(version),
		)
		addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		fmt.Println(titleStyle.Render("crmreport API") + " " + mutedStyle.Render("http://"+addr))
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	serveCmd.Flags().Bool("no-llm", false, "always use the deterministic narrative")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, credentials and provider health",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(titleStyle.Render("crmreport — System Status"))
		fmt.Println(kv("Version", fmt.Sprintf("%s (%s)", version, commit)))
		fmt.Println(kv("Config", config.ConfigFilePath()))
		fmt.Println()

		fmt.Println(headerStyle.Render("Configuration"))
		llmState := "disabled"
		if cfg.LLM.Enabled {
			llmState = fmt.Sprintf("%s (model: %s)", cfg.LLM.Primary, orDefault(cfg.LLM.Model, "default"))
		}
		fmt.Println(kv("Text generation", llmState))
		fmt.Println(kv("Data dirs", orDefault(fmt.Sprint(cfg.Data.Dirs), "none")))
		fmt.Println(kv("SQLite", orDefault(cfg.Data.SQLite, "none")))
		fmt.Println(kv("Remote", orDefault(cfg.Data.RemoteURL, "none")))
		fmt.Println(kv("API server", net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))))
		fmt.Println()

		fmt.Println(headerStyle.Render("API Keys"))
		for _, k := range config.CheckAPIKeys(cfg) {
			status := badStyle.Render("not set")
			if k.IsSet {
				status = okStyle.Render(fmt.Sprintf("set (%s: %s)", k.Source, k.Masked))
			}
			fmt.Println(kv(k.Name, status))
		}

		router := newRouter(false)
		if router == nil {
			return nil
		}
		fmt.Println()
		fmt.Println(headerStyle.Render("Providers"))
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		health := router.HealthCheck(ctx)
		for _, name := range router.ProviderNames() {
			status := okStyle.Render("ok")
			if err := health[name]; err != nil {
				status = badStyle.Render(err.Error())
			}
			fmt.Println(kv(name, status))
		}
		return nil
	},
}

func orDefault(s, def string) string {
	if s == "" || s == "[]" {
		return def
	}
	return s
}
