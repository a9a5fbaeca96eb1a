// Package main is the mulefind CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/mulefind/internal/cli"
	"github.com/hyperjump/mulefind/internal/config"
	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/query"
	"github.com/hyperjump/mulefind/internal/server"
	"github.com/hyperjump/mulefind/internal/storage"
	"github.com/hyperjump/mulefind/internal/watcher"
	"github.com/hyperjump/mulefind/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/mulefind/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
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
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
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
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "match":
		runMatch()
	case "parse":
		runParse()
	case "known":
		runKnown()
	case "library":
		runLibrary()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("mulefind version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (provider calls, shared file events, etc.)")
	offline := fs.Bool("offline", false, "serve the known store only; never contact the daemon")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	cfg.Debug = debugMode
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Bool("daemon", cfg.Daemon.Enabled() && !*offline),
	)

	components, err := initializeComponents(cfg, logger, *offline)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	library := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		watcher.NewLibrary(components.Store, logger),
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := library.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start library watcher", zap.Error(err))
	}
	defer library.Stop()
	go library.SyncExisting()

	srv := server.NewServer(components.Engine, components.Store, cfg, logger, library, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage and query syntax hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: mulefind search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Query syntax (matching is a case-insensitive substring test on the file name):
  • Words separated by spaces or , ; . : - _ ' / ! must all match (implicit AND).
  • OR, AND and NOT are upper-case keywords; ( ) groups.
  • NOT negates the next word only; a NOT before ( carries over to the first word after the group.

Examples:
  mulefind search ubuntu iso
  mulefind search "ubuntu OR debian"
  mulefind search --ext iso "linux NOT beta NOT rc"
  mulefind search --filter "1080p" --limit 20 big buck bunny
  mulefind search --server "" --offline ubuntu        # known store only, no server
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "mulefind search ubuntu -limit 5"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
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

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchLimitDefaultFromConfig returns search.default_limit from the config at path, or 50.
func searchLimitDefaultFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return 50
	}
	return cfg.Search.DefaultLimit
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search in-process)")
	ext := fs.String("ext", "", "restrict daemon searches to a file extension, e.g. iso")
	filter := fs.String("filter", "", "extra query applied to the merged result names")
	limit := fs.Int("limit", searchLimitDefaultFromConfig(configPath), "number of results")
	offset := fs.Int("offset", 0, "number of results to skip")
	offline := fs.Bool("offline", false, "in-process mode only: search the known store without the daemon")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one hit per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := cli.ParseOutputFormat(*outputFormat)

	req := &models.SearchRequest{
		Query:  queryStr,
		Ext:    *ext,
		Filter: *filter,
		Limit:  *limit,
		Offset: *offset,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response = &models.SearchResponse{}
		if err := postJSON(*serverURL+"/api/v1/search", req, response); err != nil {
			fail("Search failed: %v", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPathFlag)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		logger, err := utils.NewCLILogger(cfg.Debug)
		if err != nil {
			fail("Failed to create logger: %v", err)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, *offline)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()

		response, err = components.Engine.Search(context.Background(), req)
		if err != nil {
			fail("Search failed: %v", err)
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	invert := fs.Bool("invert", false, "print lines that do NOT match")
	count := fs.Bool("count", false, "print only the number of selected lines")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: mulefind match [flags] <query> < names.txt\n\nFilters stdin lines through a query.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	out := io.Writer(os.Stdout)
	if *count {
		out = io.Discard
	}
	n, err := matchLines(os.Stdin, out, query.Compile(buildSearchQuery(fs.Args())), *invert)
	if err != nil {
		fail("Match failed: %v", err)
	}
	if *count {
		fmt.Println(n)
	}
	if n == 0 {
		os.Exit(1)
	}
}

// matchLines copies the lines of r that match q (or do not, when invert) to w and
// returns how many were selected.
func matchLines(r io.Reader, w io.Writer, q *query.Query, invert bool) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	selected := 0
	for scanner.Scan() {
		line := scanner.Text()
		if q.Match(line) == invert {
			continue
		}
		selected++
		if _, err := fmt.Fprintln(w, line); err != nil {
			return selected, err
		}
	}
	return selected, scanner.Err()
}

func runParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "output format: text (indented tree) or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: mulefind parse [flags] <query>")
		os.Exit(1)
	}
	q := query.Compile(buildSearchQuery(fs.Args()))

	switch cli.ParseOutputFormat(*outputFormat) {
	case cli.OutputJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{
			"query":     q.Raw(),
			"tree":      q.Root(),
			"canonical": q.String(),
		}); err != nil {
			fail("Output failed: %v", err)
		}
	default:
		fmt.Printf("canonical: %s\n\n", q.String())
		writeTree(os.Stdout, q.Root(), 0)
	}
}

// writeTree prints n as an indented outline, one node per line.
func writeTree(w io.Writer, n query.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case query.Term:
		fmt.Fprintf(w, "%s%q\n", indent, string(v))
	case *query.Group:
		fmt.Fprintf(w, "%s%s\n", indent, v.Op)
		for _, child := range v.Children {
			writeTree(w, child, depth+1)
		}
	}
}

func runKnown() {
	fs := flag.NewFlagSet("known", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the database directly)")
	limit := fs.Int("limit", 50, "number of hits")
	offset := fs.Int("offset", 0, "number of hits to skip")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))
	q := buildSearchQuery(fs.Args())
	format := cli.ParseOutputFormat(*outputFormat)

	var (
		hits  []*models.Hit
		total int64
	)
	if *serverURL != "" {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(*limit))
		params.Set("offset", strconv.Itoa(*offset))
		if q != "" {
			params.Set("q", q)
		}
		var out struct {
			Hits  []*models.Hit `json:"hits"`
			Total int64         `json:"total"`
		}
		if err := getJSON(*serverURL+"/api/v1/known?"+params.Encode(), &out); err != nil {
			fail("Known failed: %v", err)
		}
		hits, total = out.Hits, out.Total
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			fail("Failed to open database: %v", err)
		}
		defer store.Close()
		hits, total, err = storage.Browse(context.Background(), store, q, *offset, *limit)
		if err != nil {
			fail("Known failed: %v", err)
		}
	}

	if format == cli.OutputText {
		fmt.Printf("%d known files\n\n", total)
	}
	if err := cli.WriteHits(os.Stdout, hits, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runLibrary() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: mulefind library <add|remove|list> [path]")
		fmt.Println("  mulefind library add <path>     Share a directory")
		fmt.Println("  mulefind library remove <path>  Stop sharing a directory")
		fmt.Println("  mulefind library list           List shared directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("library", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[3:])
	endpoint := *serverURL + "/api/v1/library/directories"

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fail("Usage: mulefind library add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := postJSON(endpoint, map[string]interface{}{"path": path, "sync": true}, nil); err != nil {
			fail("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fail("Usage: mulefind library remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := deleteJSON(endpoint + "?path=" + url.QueryEscape(path)); err != nil {
			fail("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := getJSON(endpoint, &out); err != nil {
			fail("List failed: %v", err)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fail("Unknown library subcommand: %s", sub)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		logger, err := utils.NewCLILogger(cfg.Debug)
		if err != nil {
			fail("Failed to create logger: %v", err)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, false)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components)
		if err != nil {
			fail("Status failed: %v", err)
		}
	}

	switch cli.ParseOutputFormat(*outputFormat) {
	case cli.OutputJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fail("Output failed: %v", err)
		}
	default:
		writeStatusText(os.Stdout, &status)
	}
}

func printUsage() {
	fmt.Println(`mulefind - boolean file-name search across the daemon networks and the known-files store

Usage:
  mulefind server [flags]             Start the HTTP server
  mulefind search [flags] <query>     Search all available providers
  mulefind match [flags] <query>      Filter stdin lines through a query
  mulefind parse [flags] <query>      Show how a query is parsed
  mulefind known [flags] [query]      List or search remembered hits
  mulefind library <add|remove|list>  Manage shared directories
  mulefind status [flags]             Show providers and storage status
  mulefind version                    Show version
  mulefind help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/mulefind/config.yaml)
  --debug            Enable debug logging
  --offline          Never contact the daemon; serve the known store only

Search Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to search in-process.
  --ext string       Restrict daemon searches to an extension
  --filter string    Extra query applied to merged names
  --limit int        Number of results (default from config, or 50)
  --offset int       Results to skip
  --offline          In-process mode without the daemon
  --output string    Output format: text, compact or json (default: text)

Known Flags:
  --server string    Server URL; use --server "" to read the database directly
  --limit, --offset, --output

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  mulefind server
  mulefind search "ubuntu NOT beta NOT rc"
  mulefind search --ext iso --output json debian
  ls ~/shared | mulefind match "1080p OR 720p"
  mulefind parse "a OR b c"
  mulefind known --limit 20 iso
  mulefind library add ~/shared
  mulefind status --output json`)
}
