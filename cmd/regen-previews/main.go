package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/logging"
	"movies-db/internal/mediaprobe"
	"movies-db/internal/preview"
	"movies-db/internal/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	assumeYes := flag.Bool("yes", false, "do not ask before overwriting existing previews")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage(os.Stderr)
		return 1
	}
	command := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := *configPath
	if source == "" {
		source = startup.FindConfigFile()
	}
	cfg, err := startup.LoadConfig(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)

	backend, err := startup.OpenBackend(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open catalog: %v\n", err)
		return 1
	}
	defer func() {
		if err := backend.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close catalog: %v\n", err)
		}
	}()

	if !runCommand(ctx, command, cfg, backend.Index, *assumeYes) {
		return 1
	}
	return 0
}

func runCommand(ctx context.Context, command string, cfg *startup.Config, index catalog.Index, assumeYes bool) bool {
	switch command {
	case "status":
		if err := showStatus(ctx, os.Stdout, index); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		return true
	case "missing", "all":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(os.Stderr)
		return false
	}

	all := command == "all"
	if all {
		interactive := term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // G115 - file descriptors fit in int
		ok, err := confirm(os.Stdin, os.Stdout, interactive, assumeYes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false
		}
		if !ok {
			fmt.Println("Aborted.")
			return true
		}
	}

	store, err := startup.OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	probe := mediaprobe.New(cfg.FFmpegDir)
	if !startup.LogMediaProbeInit(ctx, probe) {
		fmt.Fprintln(os.Stderr, "Error: ffmpeg and ffprobe are required to generate previews")
		return false
	}

	status, err := regenerate(ctx, index, store, probe, cfg.Preview.MaxWidth, all)
	fmt.Printf("Previews written: %d, failed: %d, not processed: %d\n", status.Succeeded, status.Failed, status.Pending)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	return status.Failed == 0
}

// sanitizeCommand replaces every character outside [a-zA-Z0-9_-] with '_'
// so user input is safe to echo.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Movie Catalog Preview Maintenance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: regen-previews [-config file] [-yes] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status   - Count entries with and without previews")
	fmt.Fprintln(w, "  missing  - Generate previews for entries that have media but no preview")
	fmt.Fprintln(w, "  all      - Regenerate every preview, overwriting existing ones")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "The catalog and blob store are taken from the server configuration.")
	fmt.Fprintln(w, "Stop the server first when using the sqlite backend.")
}

// previewCounts summarizes the preview state of the catalog.
type previewCounts struct {
	Entries     int
	WithMedia   int
	WithPreview int
	Missing     int
}

func countPreviews(ctx context.Context, index catalog.Index) (previewCounts, error) {
	var counts previewCounts
	ids, err := index.SearchMovies(ctx, catalog.SearchQuery{})
	if err != nil {
		return counts, fmt.Errorf("failed to list movies: %w", err)
	}
	for _, id := range ids {
		entry, err := index.GetMovie(ctx, id)
		if catalog.IsNotFound(err) {
			continue
		}
		if err != nil {
			return counts, fmt.Errorf("failed to read movie %s: %w", id, err)
		}
		counts.Entries++
		if entry.MediaInfo != nil {
			counts.WithMedia++
		}
		if entry.PreviewInfo != nil {
			counts.WithPreview++
		}
		if entry.NeedsPreview() {
			counts.Missing++
		}
	}
	return counts, nil
}

func showStatus(ctx context.Context, w io.Writer, index catalog.Index) error {
	counts, err := countPreviews(ctx, index)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Entries:          %d\n", counts.Entries)
	fmt.Fprintf(w, "With media:       %d\n", counts.WithMedia)
	fmt.Fprintf(w, "With preview:     %d\n", counts.WithPreview)
	fmt.Fprintf(w, "Missing previews: %d\n", counts.Missing)
	return nil
}

// confirm asks before previews are overwritten. Without a terminal the
// answer has to come from -yes.
func confirm(in io.Reader, out io.Writer, interactive, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !interactive {
		return false, fmt.Errorf("refusing to overwrite previews without a terminal; pass -yes")
	}

	fmt.Fprint(out, "Overwrite all existing previews? [y/N]: ")
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// regenerate runs one pass of the preview pipeline to completion. With all
// set, entries that already have a preview are queued as well; entries
// missing one are queued by the pipeline's own reconciliation.
func regenerate(ctx context.Context, index catalog.Index, store blobstore.Store, prober preview.Prober, maxWidth int, all bool) (preview.Status, error) {
	pipeline := preview.New(index, store, prober, preview.Config{MaxWidth: maxWidth})

	if all {
		ids, err := index.SearchMovies(ctx, catalog.SearchQuery{})
		if err != nil {
			return pipeline.Status(), fmt.Errorf("failed to list movies: %w", err)
		}
		for _, id := range ids {
			entry, err := index.GetMovie(ctx, id)
			if catalog.IsNotFound(err) {
				continue
			}
			if err != nil {
				return pipeline.Status(), fmt.Errorf("failed to read movie %s: %w", id, err)
			}
			if entry.MediaInfo != nil && entry.PreviewInfo != nil {
				pipeline.Enqueue(preview.Job{ID: id, Ext: entry.MediaInfo.Extension})
			}
		}
	}

	return pipeline.Drain(ctx)
}
