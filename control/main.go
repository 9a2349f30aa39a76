package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/em32/mlcatalog/catalog"
	"github.com/em32/mlcatalog/catalog/config"
	"github.com/em32/mlcatalog/catalog/convert"
	"github.com/em32/mlcatalog/catalog/ipfs"
	"github.com/em32/mlcatalog/catalog/logging"
)

var (
	// Version is set at build time via ldflags
	// Example: go build -ldflags="-X main.Version=v1.2.3"
	Version = "dev"
)

const (
	// Default port for the control server
	defaultPort = 8080
	// Default config path
	defaultConfigPath = "config.yaml"
)

func main() {
	// A .env next to the binary may carry MLCATALOG_* overrides.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "version" || command == "--version" || command == "-v" {
		fmt.Printf("mlcatalog version %s\n", Version)
		os.Exit(0)
	}

	switch command {
	case "validate":
		validateCommand()
	case "convert":
		convertCommand()
	case "render":
		renderCommand()
	case "publish":
		publishCommand()
	case "patch":
		patchCommand()
	case "prime":
		primeCommand()
	case "serve":
		serveCommand()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mlcatalog - Modular Lockdown catalog processor

USAGE:
    mlcatalog <command> [flags]

COMMANDS:
    validate    Check season metadata and files, print a report
    convert     Transcode missing Ogg Vorbis files from the FLAC originals
    render      Render the static site from the catalog
    publish     Run the full pipeline (convert, probe, render, patch)
    patch       Re-link rendered files into a published IPFS root
    prime       Warm public gateway caches for a root CID
    serve       Start the control server
    version     Show version information

FLAGS:
    -h, --help    Show this help message

EXAMPLES:
    mlcatalog validate --config config.yaml
    mlcatalog publish --config config.yaml --hash Qm... --no-tui
    mlcatalog serve --port 8080 --config config.yaml
`)
}

// setup loads the config and opens the log file. Callers own the logger.
func setup(configPath string) (*config.Config, *logging.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.UI.LogPath), 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}
	logger, err := logging.NewLogger(cfg.UI.LogPath, "mlcatalog")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	return cfg, logger
}

func validateCommand() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}

	cfg, logger := setup(*configPath)
	defer logger.Close()

	svc := catalog.NewService(cfg, logger)
	if err := svc.LoadSeasons(); err != nil {
		log.Fatalf("Failed to load seasons: %v", err)
	}

	report := svc.Validate()
	colored := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
	report.Render(os.Stdout, colored)
	if report.Errors > 0 {
		os.Exit(1)
	}
}

func convertCommand() {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}

	cfg, logger := setup(*configPath)
	defer logger.Close()

	svc := catalog.NewService(cfg, logger)
	if err := svc.LoadSeasons(); err != nil {
		log.Fatalf("Failed to load seasons: %v", err)
	}

	jobs := convert.MissingJobs(svc.Seasons())
	if len(jobs) == 0 {
		fmt.Println("Nothing to convert")
		return
	}
	fmt.Printf("Converting %d files...\n", len(jobs))

	converter := convert.NewConverter(&cfg.Convert)
	converted, err := converter.ConvertAll(signalContext(), jobs, func(job convert.Job, jobErr error) {
		if jobErr != nil {
			fmt.Printf("  FAILED %s: %v\n", job.Label, jobErr)
		} else {
			fmt.Printf("  done %s\n", job.Label)
		}
	})
	fmt.Printf("Converted %d of %d files\n", converted, len(jobs))
	if err != nil {
		os.Exit(1)
	}
}

func renderCommand() {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	metadataPath := fs.String("metadata", "", "Render from a metadata snapshot instead of the live catalog")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}

	cfg, logger := setup(*configPath)
	defer logger.Close()

	if *metadataPath != "" {
		if err := catalog.RenderSnapshot(cfg, *metadataPath); err != nil {
			log.Fatalf("Failed to render site from snapshot: %v", err)
		}
		fmt.Printf("Rendered site from %s to %s\n", *metadataPath, cfg.Catalog.OutputDir)
		return
	}

	svc := catalog.NewService(cfg, logger)
	if err := svc.LoadSeasons(); err != nil {
		log.Fatalf("Failed to load seasons: %v", err)
	}
	if err := svc.Render(); err != nil {
		log.Fatalf("Failed to render site: %v", err)
	}
	fmt.Printf("Rendered site to %s\n", cfg.Catalog.OutputDir)
}

func patchCommand() {
	fs := flag.NewFlagSet("patch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	hash := fs.String("hash", "", "Root CID of the published archive")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}
	if *hash == "" {
		log.Fatal("Missing --hash argument")
	}

	root, err := cid.Decode(*hash)
	if err != nil {
		log.Fatalf("Invalid root CID: %v", err)
	}

	cfg, logger := setup(*configPath)
	defer logger.Close()

	client := ipfs.NewClient(cfg.IPFS.Binary)
	patcher := ipfs.NewPatcher(client, cfg.IPFS.Patchable)
	patcher.OnProgress(func(name, path string, newCID cid.Cid) {
		fmt.Printf("Patching %s with %s (%s)\n", name, path, newCID)
	})

	newRoot, err := patcher.PatchRoot(signalContext(), root, cfg.Catalog.OutputDir)
	if err != nil {
		log.Fatalf("Failed to patch root object: %v", err)
	}

	fmt.Printf("New root object %s\n", newRoot)
	fmt.Println(ipfs.SubdomainURL(newRoot))
}

func primeCommand() {
	fs := flag.NewFlagSet("prime", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	hash := fs.String("hash", "", "Root CID to request from the gateways")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}
	if *hash == "" {
		log.Fatal("Missing --hash argument")
	}

	root, err := cid.Decode(*hash)
	if err != nil {
		log.Fatalf("Invalid root CID: %v", err)
	}

	cfg, logger := setup(*configPath)
	defer logger.Close()

	primer := ipfs.NewPrimer(cfg.IPFS.Gateways, time.Duration(cfg.IPFS.PrimeTimeout)*time.Second)
	results := primer.Prime(signalContext(), root)

	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			fmt.Printf("FAILED %s: %v\n", res.Gateway, res.Err)
		} else {
			fmt.Printf("primed %s in %v\n", res.Gateway, res.Elapsed.Round(time.Millisecond))
		}
	}
	if failures == len(results) && len(results) > 0 {
		os.Exit(1)
	}
}

func serveCommand() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", defaultPort, "HTTP server port")
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Error parsing flags: %v", err)
	}

	serverConfig := &ServerConfig{
		Port:       *port,
		ConfigPath: *configPath,
		Version:    Version,
	}

	server, err := NewServer(serverConfig)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("mlcatalog version %s", Version)
		log.Printf("Starting control server on port %d", *port)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down gracefully...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		} else {
			log.Println("Server shut down gracefully")
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx
}
