// Command catalogcheck validates a species catalog CSV before it is
// published. It prints the species count of every region and each rejected
// row.
//
// Flags:
//
//	--file     path to a CSV file (default: the bundled catalog)
//	--url      CSV export URL, fetched like the server does
//	--regions  Name:placeID list (default: the server's default regions)
//	--strict   exit 1 when any row is rejected
//
// Exit codes: 0 = valid, 1 = invalid or unreadable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/heartmarshall/wildguess-backend/internal/adapter/provider/sheet"
	"github.com/heartmarshall/wildguess-backend/internal/catalog"
	"github.com/heartmarshall/wildguess-backend/internal/config"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const defaultRegions = "Any:0,North America:97394,Europe:97391,Africa:97392,Asia:97395,Oceania:97393,South America:97389"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("catalogcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "path to a catalog CSV (default: bundled catalog)")
	url := fs.String("url", "", "catalog CSV export URL")
	regionsRaw := fs.String("regions", defaultRegions, "comma-separated Name:placeID regions")
	strict := fs.Bool("strict", false, "fail when any row is rejected")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	regions, err := config.ParseRegions(*regionsRaw)
	if err != nil {
		fmt.Fprintf(stderr, "regions: %v\n", err)
		return 1
	}

	result, err := load(ctx, *file, *url, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "load catalog: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tSPECIES")
	empty := 0
	for _, rc := range regions {
		n := len(catalog.ForRegion(result.Species, domain.Region{Name: rc.Name, PlaceID: rc.PlaceID}))
		if n == 0 {
			empty++
		}
		fmt.Fprintf(tw, "%s\t%d\n", rc.Name, n)
	}
	_ = tw.Flush()

	for _, r := range result.Rejected {
		fmt.Fprintf(stdout, "rejected line %d: %s\n", r.Line, r.Reason)
	}
	fmt.Fprintf(stdout, "%d rows accepted, %d rejected\n", len(result.Species), len(result.Rejected))

	if empty > 0 {
		fmt.Fprintf(stderr, "%d region(s) have no species\n", empty)
		return 1
	}
	if *strict && len(result.Rejected) > 0 {
		return 1
	}
	return 0
}

func load(ctx context.Context, file, url string, stderr io.Writer) (*catalog.ParseResult, error) {
	switch {
	case file != "" && url != "":
		return nil, fmt.Errorf("--file and --url are mutually exclusive")
	case url != "":
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		return sheet.NewProvider(logger, url, 30*time.Second).Fetch(ctx)
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return catalog.Parse(f)
	default:
		return sheet.Bundled{}.Fetch(ctx)
	}
}
