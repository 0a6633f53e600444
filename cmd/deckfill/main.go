// Package main is the deckfill CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/deckfill/internal/cli"
	"github.com/hyperjump/deckfill/internal/config"
	"github.com/hyperjump/deckfill/internal/extract"
	"github.com/hyperjump/deckfill/internal/inbox"
	"github.com/hyperjump/deckfill/internal/mapper"
	"github.com/hyperjump/deckfill/internal/models"
	"github.com/hyperjump/deckfill/internal/parser"
	"github.com/hyperjump/deckfill/internal/pipeline"
	"github.com/hyperjump/deckfill/internal/preprocess"
	"github.com/hyperjump/deckfill/internal/server"
	"github.com/hyperjump/deckfill/internal/slides"
	"github.com/hyperjump/deckfill/internal/storage"
	"github.com/hyperjump/deckfill/internal/workspace"
	"github.com/hyperjump/deckfill/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/deckfill/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
			cfg = &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	var err error
	switch command {
	case "server":
		runServer(args)
	case "parse":
		err = runParse(args, os.Stdin, os.Stdout)
	case "map":
		err = runMap(args, os.Stdout)
	case "preprocess":
		err = runPreprocess(args, os.Stdout)
	case "content":
		err = runContent(args, os.Stdin, os.Stdout)
	case "generate":
		err = runGenerate(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("deckfill version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (inbox events, preprocessing, etc.)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("workspace", cfg.Storage.WorkspaceDir),
		zap.String("preprocess_mode", cfg.Preprocess.Mode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	inboxCtx, inboxCancel := context.WithCancel(context.Background())
	defer inboxCancel()
	var inboxSvc server.InboxService
	if len(cfg.Inbox.Directories) > 0 {
		svc := components.Service
		in := inbox.New(
			cfg.Inbox.Directories,
			cfg.Inbox.RecursiveOrDefault(),
			func(path string) {
				if _, _, err := svc.ImportTemplate(inboxCtx, path, models.SourceInbox); err != nil {
					logger.Warn("inbox import failed", zap.String("path", path), zap.Error(err))
				}
			},
			inbox.WithLogger(logger),
		)
		if err := in.Start(inboxCtx); err != nil {
			logger.Fatal("Failed to start inbox", zap.Error(err))
		}
		in.SyncExisting()
		defer in.Stop()
		inboxSvc = in
	}

	srv := server.NewServer(components.Service, &cfg.Server, logger, inboxSvc)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	inboxCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// reorderArgs moves any flags (and their values) that appear after positional arguments to
// the front so that flag.Parse sees them. Go's flag package stops at the first non-flag
// argument, so "deckfill parse notes.txt -format json" would otherwise ignore -format.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func isStdin(path string) bool {
	return path == "" || path == "-"
}

// readDeck returns the slide content in path. "-" or "" parses stdin; files are extracted by
// extension, spreadsheets column by column.
func readDeck(path string, stdin io.Reader) (slides.Deck, error) {
	if isStdin(path) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return parser.Parse(string(data)), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return extract.NewExtractor().ExtractDeck(data, filepath.Ext(path))
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

// runParse prints the slide content parsed from a file or stdin, optionally writing the
// user-content JSON artifact.
func runParse(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	outputFormat := fs.String("format", "text", "output format: text or json")
	outPath := fs.String("out", "", "also write the parsed content as JSON to this file")
	_ = fs.Parse(reorderArgs(args))

	deck, err := readDeck(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	if *outPath != "" {
		data, err := json.MarshalIndent(deck, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*outPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("write %s: %w", *outPath, err)
		}
	}
	return cli.WriteDeck(stdout, deck, parseFormat(*outputFormat))
}

// runMap resolves a placeholder map against slide content. With two file arguments it maps
// those artifacts directly; otherwise it maps the workspace artifacts.
func runMap(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (workspace mode)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))
	format := parseFormat(*outputFormat)

	switch fs.NArg() {
	case 2:
		resolved, err := mapper.MapFiles(fs.Arg(0), fs.Arg(1))
		if err != nil {
			return err
		}
		return cli.WriteMapping(stdout, resolved, format)
	case 0:
		return withService(*configPath, func(ctx context.Context, svc *pipeline.Service) error {
			resolved, err := svc.Mapping(ctx)
			if err != nil {
				return err
			}
			return cli.WriteMapping(stdout, resolved, format)
		})
	default:
		return errors.New("usage: deckfill map [flags] [<mapped-content.json> <user-content.json>]")
	}
}

// runPreprocess stores a template in the workspace and preprocesses it.
func runPreprocess(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("preprocess", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))
	format := parseFormat(*outputFormat)
	if fs.NArg() != 1 {
		return errors.New("usage: deckfill preprocess [flags] <template.pptx>")
	}
	return withService(*configPath, func(ctx context.Context, svc *pipeline.Service) error {
		_, placeholders, err := svc.ImportTemplate(ctx, fs.Arg(0), models.SourceUpload)
		if err != nil {
			return err
		}
		return cli.WritePlaceholders(stdout, placeholders, format)
	})
}

// runContent parses slide text and saves it to the workspace.
func runContent(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("content", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))
	format := parseFormat(*outputFormat)

	path := fs.Arg(0)
	var raw []byte
	if isStdin(path) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		raw = data
	}
	return withService(*configPath, func(ctx context.Context, svc *pipeline.Service) error {
		var (
			deck slides.Deck
			err  error
		)
		if isStdin(path) {
			deck, err = svc.SaveContent(ctx, string(raw))
		} else {
			var data []byte
			if data, err = os.ReadFile(path); err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			deck, err = svc.ImportContent(ctx, filepath.Base(path), data)
		}
		if err != nil {
			return err
		}
		return cli.WriteDeck(stdout, deck, format)
	})
}

// runGenerate fills the workspace template with the saved content.
func runGenerate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("format", "text", "output format: text or json")
	outPath := fs.String("out", "", "copy the generated presentation to this path")
	_ = fs.Parse(reorderArgs(args))
	format := parseFormat(*outputFormat)

	return withService(*configPath, func(ctx context.Context, svc *pipeline.Service) error {
		gen, err := svc.Generate(ctx)
		if err != nil {
			return err
		}
		if *outPath != "" {
			data, err := os.ReadFile(gen.OutputPath)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*outPath, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", *outPath, err)
			}
			gen.OutputPath = *outPath
		}
		return cli.WriteGeneration(stdout, gen, format)
	})
}

func runStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct workspace mode)")
	serverURL := fs.String("server", "", "server URL (empty = read the workspace directly)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	if *serverURL != "" {
		st, err := statusViaHTTP(*serverURL)
		if err != nil {
			return err
		}
		return cli.WriteStatus(stdout, st, format)
	}
	return withService(*configPath, func(ctx context.Context, svc *pipeline.Service) error {
		st, err := svc.Status(ctx)
		if err != nil {
			return err
		}
		return cli.WriteStatus(stdout, st, format)
	})
}

func statusViaHTTP(serverURL string) (*pipeline.Status, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var st pipeline.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

// withService loads config, opens the workspace and history, and runs fn.
func withService(configPath string, fn func(ctx context.Context, svc *pipeline.Service) error) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, components.Service)
}

// Components holds the long-lived dependencies shared by commands.
type Components struct {
	Storage   storage.Storage
	Workspace *workspace.Workspace
	Service   *pipeline.Service
}

// Close releases component resources.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	ws, err := workspace.New(cfg.Storage.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	pre, err := preprocess.New(
		cfg.Preprocess.Mode,
		cfg.Preprocess.Python,
		cfg.Preprocess.Script,
		preprocess.WithLogger(logger),
		preprocess.WithTimeout(cfg.Preprocess.Timeout()),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	svc := pipeline.New(ws, store, pre, pipeline.WithLogger(logger))
	return &Components{
		Storage:   store,
		Workspace: ws,
		Service:   svc,
	}, nil
}

func printUsage() {
	fmt.Println(`deckfill - Fill PowerPoint templates with slide content

Usage:
  deckfill server [flags]                    Start the HTTP server
  deckfill parse [flags] [file|-]            Parse slide text and print the result
  deckfill map [flags] [<mapped> <user>]     Resolve placeholders against slide content
  deckfill preprocess [flags] <template>     Store and preprocess a .pptx template
  deckfill content [flags] [file|-]          Save slide content to the workspace
  deckfill generate [flags]                  Fill the template and write the presentation
  deckfill status [flags]                    Show workspace status
  deckfill version                           Show version
  deckfill help                              Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/deckfill/config.yaml)
  --format string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Parse Flags:
  --out string       Also write the parsed content JSON to this file

Generate Flags:
  --out string       Copy the generated presentation to this path

Status Flags:
  --server string    Server URL; empty reads the workspace directly

Content files may be plain text or .docx, .pdf, .rtf, .odt, .pptx, .odp, .xlsx, .ods.

Examples:
  deckfill server
  deckfill preprocess template.pptx
  deckfill content notes.txt
  echo "Slide 1: Hello" | deckfill parse -format json
  deckfill map data/mapped-content.json data/user-content.json
  deckfill generate --out deck.pptx
  deckfill status --server http://localhost:5000`)
}
