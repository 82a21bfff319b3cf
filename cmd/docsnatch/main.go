package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/docsnatch/docsnatch/internal/app"
	"github.com/docsnatch/docsnatch/internal/cache"
	"github.com/docsnatch/docsnatch/internal/config"
	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/server"
	"github.com/docsnatch/docsnatch/internal/utils"
	"github.com/docsnatch/docsnatch/pkg/version"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docsnatch [id...]",
	Short: "Export public Google Docs and Sheets",
	Long: `Docsnatch pulls public Google Docs and Sheets through their HTML and
export endpoints and bundles the results into a single zip archive.

Documents convert to DOCX or Markdown; spreadsheets export one CSV per
tab or a single XLSX workbook. Ids that fail to export are skipped and
reported, never fatal for the batch.`,
	Version: version.Short(),
	Args:    cobra.ArbitraryArgs,
	RunE:    run,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags shared by every subcommand
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.ConfigFilePath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	// Export flags
	rootCmd.Flags().StringP("type", "t", "docx", "Export format: docx, md, csv or xlsx")
	rootCmd.Flags().StringP("output", "o", server.ArchiveName, "Output zip path")
	rootCmd.Flags().IntP("workers", "j", config.DefaultWorkers, "Number of ids resolved concurrently")
	rootCmd.Flags().Duration("timeout", config.DefaultFetchTimeout, "Request timeout")
	rootCmd.Flags().Bool("cache", false, "Cache fetched pages between runs")
	rootCmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL, "Cache TTL")
	rootCmd.Flags().Bool("manifest", false, "Write manifest.json into the archive")
	rootCmd.Flags().String("user-agent", "", "Custom User-Agent")
	rootCmd.Flags().String("proxy", "", "Proxy URL for outbound requests")

	// Flags override file and environment through viper
	_ = viper.BindPFlag("build.workers", rootCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("fetch.timeout", rootCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("cache.enabled", rootCmd.Flags().Lookup("cache"))
	_ = viper.BindPFlag("cache.ttl", rootCmd.Flags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("build.include_manifest", rootCmd.Flags().Lookup("manifest"))
	_ = viper.BindPFlag("fetch.user_agent", rootCmd.Flags().Lookup("user-agent"))
	_ = viper.BindPFlag("fetch.proxy_url", rootCmd.Flags().Lookup("proxy"))

	// Serve flags
	serveCmd.Flags().String("host", config.DefaultServerHost, "Listen host")
	serveCmd.Flags().IntP("port", "p", config.DefaultServerPort, "Listen port")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	docTypeStr, _ := cmd.Flags().GetString("type")
	docType, err := domain.ParseDocType(docTypeStr)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")

	// The progress bar owns the terminal, so logs stay off unless -v
	showProgress := !verbose && !quiet
	appOpts := app.Options{
		Config:  cfg,
		Verbose: verbose,
		Quiet:   quiet || !verbose,
	}

	barDesc := utils.DescFetching
	if docType.IsSpreadsheet() {
		barDesc = utils.DescExporting
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = utils.NewProgressBar(len(args), barDesc)
		appOpts.OnItem = func(report domain.ItemReport) {
			_ = bar.Add(1)
		}
	}

	a, err := app.New(appOpts)
	if err != nil {
		return err
	}
	defer a.Close()

	// SIGINT and SIGTERM cancel the build; partial archives are never
	// written
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	data, report, err := a.Build(ctx, docType, args)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if err := utils.EnsureDir(outputPath); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	fmt.Printf("Wrote %s (%d entries, %d ok, %d failed)\n",
		outputPath, report.Entries, report.Succeeded, report.Failed)
	if failed := report.FailedIDs(); len(failed) > 0 {
		fmt.Printf("Failed ids: %s\n", strings.Join(failed, ", "))
	}

	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP export service",
	Long:  "Serves the export form, the download endpoint and the operational endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		a, err := app.New(app.Options{Config: cfg, Verbose: verbose})
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := server.New(a, server.Options{
			Logger:         a.Logger,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: srv.Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			a.Logger.Info().Str("addr", httpServer.Addr).Msg("Server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		// Graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
		}

		a.Logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cacheDir := cfg.Cache.Directory
		if cacheDir == "" {
			cacheDir = config.CacheDir()
		}
		cacheDir = utils.ExpandPath(cacheDir)

		if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
			fmt.Println("Cache is empty")
			return nil
		}

		store, err := cache.NewBadgerCache(cache.Options{Directory: cacheDir})
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("Cache cleared")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and on-disk size",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cacheDir := cfg.Cache.Directory
		if cacheDir == "" {
			cacheDir = config.CacheDir()
		}
		cacheDir = utils.ExpandPath(cacheDir)

		if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
			fmt.Println("Cache is empty")
			return nil
		}

		store, err := cache.NewBadgerCache(cache.Options{Directory: cacheDir})
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()

		stats := store.Stats()
		fmt.Printf("Entries:   %d\n", stats["entries"])
		fmt.Printf("LSM size:  %d bytes\n", stats["lsm_size"])
		fmt.Printf("Vlog size: %d bytes\n", stats["vlog_size"])
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and version details",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
