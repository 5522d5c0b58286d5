// Command-line entry point for the FCC station database tool.
//
// The tool fetches the FCC's pipe-delimited FM/AM station dumps, parses
// them into validated records, and maintains a local database with search,
// statistics, genre classification and a small REST API on top.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"fcc_stations/internal/api"
	"fcc_stations/internal/config"
	"fcc_stations/internal/fcc"
	"fcc_stations/internal/feed"
	"fcc_stations/internal/fetch"
	"fcc_stations/internal/genre"
	"fcc_stations/internal/station"
	"fcc_stations/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "fcc_stations - FCC radio station database tool:")
	fmt.Fprintln(w, "  init      - create the database schema")
	fmt.Fprintln(w, "  fetch     - download FCC data and store stations")
	fmt.Fprintln(w, "  stats     - show aggregate database statistics")
	fmt.Fprintln(w, "  search    - substring search by call sign or city")
	fmt.Fprintln(w, "  classify  - detect genres for unclassified stations")
	fmt.Fprintln(w, "  serve     - run the REST API")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  fcc_stations fetch [-service fm|am|both] [-limit N] [-publish] [-archive]")
	fmt.Fprintln(w, "  fcc_stations search <query> [-limit N]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Common flags: -config <file>, -db <sqlite path>, -backend sqlite|postgres")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cmd := strings.ToLower(os.Args[1])
	args := os.Args[2:]

	switch cmd {
	case "init":
		runInit(args)
	case "fetch":
		runFetch(args)
	case "stats":
		runStats(args)
	case "search":
		runSearch(args)
	case "classify":
		runClassify(args)
	case "serve":
		runServe(args)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// commonFlags registers the flags shared by every command.
type commonFlags struct {
	configPath *string
	dbPath     *string
	backend    *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "YAML config file"),
		dbPath:     fs.String("db", "", "SQLite database path (overrides config)"),
		backend:    fs.String("backend", "", "Storage backend: sqlite or postgres (overrides config)"),
	}
}

// loadConfig resolves the effective configuration from file plus overrides.
func loadConfig(cf commonFlags) *config.Config {
	cfg, err := config.Load(*cf.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *cf.dbPath != "" {
		cfg.Database.SQLitePath = *cf.dbPath
	}
	if *cf.backend != "" {
		cfg.Database.Backend = *cf.backend
	}
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config) storage.StationStore {
	store, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cf := addCommonFlags(fs)
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg := loadConfig(cf)

	store := openStore(ctx, cfg)
	defer func() { _ = store.Close() }()

	if err := store.CreateSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database initialized.")
}

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cf := addCommonFlags(fs)
	service := fs.String("service", "both", "Service to fetch: fm, am, or both")
	limit := fs.Int("limit", 0, "Store at most N stations (0 = all)")
	publish := fs.Bool("publish", false, "Publish stored stations to NATS")
	archive := fs.Bool("archive", false, "Archive raw lines and outcomes to ClickHouse")
	verbose := fs.Bool("v", false, "Log individual line failures")
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg := loadConfig(cf)

	var services []station.Service
	switch strings.ToLower(*service) {
	case "fm":
		services = []station.Service{station.ServiceFM}
	case "am":
		services = []station.Service{station.ServiceAM}
	case "both":
		services = []station.Service{station.ServiceFM, station.ServiceAM}
	default:
		fmt.Fprintf(os.Stderr, "Invalid -service %q (want fm, am, or both)\n", *service)
		os.Exit(2)
	}

	store := openStore(ctx, cfg)
	defer func() { _ = store.Close() }()

	var arch *storage.Archive
	if *archive {
		var err error
		arch, err = storage.OpenArchive(ctx, cfg.StorageConfig().ClickHouse)
		if err != nil {
			log.Printf("warning: archive disabled: %v", err)
		} else {
			defer func() { _ = arch.Close() }()
		}
	}

	client := fetch.NewClient(cfg.Fetch.Timeout())
	var all []station.Station

	for _, svc := range services {
		stations, failed, err := fetchService(ctx, client, svc, arch, *verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to fetch %s data: %v\n", svc, err)
			os.Exit(1)
		}
		fmt.Printf("%s: parsed %d stations, %d lines failed\n", svc, len(stations), failed)
		all = append(all, stations...)
	}

	if *limit > 0 && len(all) > *limit {
		all = all[:*limit]
	}

	stored, skipped := storage.UpsertAll(ctx, store, all)
	fmt.Printf("Stored %d stations (%d failed to store).\n", stored, skipped)

	if *publish {
		pub, err := feed.Connect(cfg.NATS.URL)
		if err != nil {
			log.Printf("warning: publishing disabled: %v", err)
			return
		}
		defer pub.Close()
		published, failedPub := pub.PublishAll(all)
		fmt.Printf("Published %d stations (%d failed to publish).\n", published, failedPub)
	}
}

// fetchService downloads and parses one feed, archiving line outcomes when
// an archive is available.
func fetchService(ctx context.Context, client *fetch.Client, svc station.Service, arch *storage.Archive, verbose bool) ([]station.Station, int, error) {
	var (
		body    string
		err     error
		variant fcc.RecordVariant
	)
	switch svc {
	case station.ServiceFM:
		body, err = client.FetchFM(ctx)
		variant = fcc.FMVariant
	case station.ServiceAM:
		body, err = client.FetchAM(ctx)
		variant = fcc.AMVariant
	}
	if err != nil {
		return nil, 0, err
	}

	results := fcc.ParseLines(body, variant, svc)

	stations := make([]station.Station, 0, len(results))
	failed := 0
	outcomes := make([]storage.LineOutcome, 0, len(results))
	for _, res := range results {
		outcome := storage.LineOutcome{LineNo: res.LineNo, RawLine: res.Raw}
		if res.Err != nil {
			failed++
			if verbose {
				log.Printf("skipping %s line %d: %v", variant.Name, res.LineNo, res.Err)
			}
		} else {
			stations = append(stations, *res.Station)
			outcome.ParsedOK = true
			outcome.CallSign = res.Station.CallSign
		}
		outcomes = append(outcomes, outcome)
	}

	if arch != nil {
		now := time.Now().UTC()
		batchID := now.Format("20060102T150405") + "-" + variant.Name
		if err := arch.ArchiveBatch(ctx, batchID, variant.Name, now, outcomes); err != nil {
			log.Printf("warning: failed to archive %s batch: %v", variant.Name, err)
		}
	}

	return stations, failed, nil
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cf := addCommonFlags(fs)
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg := loadConfig(cf)

	store := openStore(ctx, cfg)
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read statistics: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Service\tCount")
	fmt.Fprintf(w, "FM\t%d\n", stats.FMCount)
	fmt.Fprintf(w, "AM\t%d\n", stats.AMCount)
	fmt.Fprintf(w, "Total\t%d\n", stats.Total)
	fmt.Fprintf(w, "Classified\t%d\n", stats.Classified)
	_ = w.Flush()

	if len(stats.ByStatus) > 0 {
		fmt.Println("\nBy status:")
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, lc := range stats.ByStatus {
			label := lc.Label
			if label == "" {
				label = "(unknown)"
			}
			fmt.Fprintf(w, "%s\t%d\n", label, lc.Count)
		}
		_ = w.Flush()
	}

	if len(stats.TopStates) > 0 {
		fmt.Println("\nTop states:")
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, lc := range stats.TopStates {
			fmt.Fprintf(w, "%s\t%d\n", lc.Label, lc.Count)
		}
		_ = w.Flush()
	}
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cf := addCommonFlags(fs)
	limit := fs.Int("limit", 10, "Maximum results to show")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: fcc_stations search <query> [flags]")
		os.Exit(2)
	}
	query := fs.Arg(0)

	ctx := context.Background()
	cfg := loadConfig(cf)

	store := openStore(ctx, cfg)
	defer func() { _ = store.Close() }()

	stations, err := store.Search(ctx, query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if len(stations) == 0 {
		fmt.Printf("No stations found matching %q.\n", query)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Call Sign\tFrequency\tType\tLocation\tGenre")
	for _, st := range stations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s, %s\t%s\n",
			st.CallSign, formatFrequency(&st), st.Service, st.City, st.State, st.Genre)
	}
	_ = w.Flush()
	fmt.Printf("\nShowing %d of maximum %d results.\n", len(stations), *limit)
}

// formatFrequency prints the carrier the way listeners know it: MHz for FM,
// kHz for AM.
func formatFrequency(st *station.Station) string {
	if st.Service == station.ServiceAM {
		return fmt.Sprintf("%.0f kHz", st.Frequency*1000)
	}
	return fmt.Sprintf("%.1f MHz", st.Frequency)
}

func runClassify(args []string) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	cf := addCommonFlags(fs)
	limit := fs.Int("limit", 100, "Maximum stations to classify in this run")
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg := loadConfig(cf)

	detector, err := genre.NewDetector(cfg.Genre.APIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classifier unavailable: %v (set GEMINI_API_KEY)\n", err)
		os.Exit(1)
	}

	store := openStore(ctx, cfg)
	defer func() { _ = store.Close() }()

	stations, err := store.Unclassified(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list unclassified stations: %v\n", err)
		os.Exit(1)
	}
	if len(stations) == 0 {
		fmt.Println("No unclassified stations.")
		return
	}

	classified := 0
	for i := range stations {
		st := &stations[i]
		g, err := detector.Detect(ctx, st)
		if errors.Is(err, genre.ErrQuotaExhausted) {
			fmt.Println("Grounding quota exhausted; stopping for this run.")
			break
		}
		if err != nil {
			log.Printf("warning: %v", err)
			continue
		}
		if g == "" {
			continue
		}
		if err := store.SetGenre(ctx, st.CallSign, g); err != nil {
			log.Printf("warning: failed to save genre for %s: %v", st.CallSign, err)
			continue
		}
		fmt.Printf("%s: %s\n", st.CallSign, g)
		classified++
	}

	fmt.Printf("Classified %d of %d stations.\n", classified, len(stations))
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cf := addCommonFlags(fs)
	port := fs.Int("port", 8090, "HTTP listen port")
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg := loadConfig(cf)

	store := openStore(ctx, cfg)
	defer func() { _ = store.Close() }()

	server := api.NewServer(store, *port)
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}
