package scraper

import (
	"context"
	"log/slog"
	"net/url"

	"foodpillory/internal/facility"

	"github.com/golang-sql/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("foodpillory/scraper")

var meter = otel.Meter("foodpillory/scraper")
var listPageCounter, _ = meter.Int64Counter("scraper.list_pages")
var detailPageCounter, _ = meter.Int64Counter("scraper.detail_pages")
var recordCounter, _ = meter.Int64Counter("scraper.records")

// SearchParams are the query parameters of the search endpoint for the
// first page of a snapshot.
func SearchParams(snapshot facility.Snapshot) url.Values {
	return url.Values{
		"lang":     {"cs"},
		"design":   {"default"},
		"archive":  {string(snapshot)},
		"listtype": {"table"},
		"page":     {"1"},
	}
}

type Options struct {
	SearchUrl        string
	DetailUrl        string
	Snapshot         facility.Snapshot
	RefetchFirstPage bool
	// stamps fetched_on, defaults to timezone.Today
	Today func() civil.Date
}

// Scraper collects one snapshot. Requests are strictly sequential: every
// list page is followed by one detail request per row before the next list
// page is requested.
type Scraper struct {
	walker    Walker
	assembler Assembler
	extractor Extractor
}

func New(fetcher Fetcher, extractor Extractor, opts Options) Scraper {
	return Scraper{
		walker: Walker{
			Fetcher:          fetcher,
			Extractor:        extractor,
			Endpoint:         opts.SearchUrl,
			Params:           SearchParams(opts.Snapshot),
			RefetchFirstPage: opts.RefetchFirstPage,
		},
		assembler: Assembler{
			Fetcher:        fetcher,
			Extractor:      extractor,
			DetailEndpoint: opts.DetailUrl,
			Today:          opts.Today,
		},
		extractor: extractor,
	}
}

// Run collects the whole snapshot. Any error aborts the run and nothing is
// returned, a partial dataset is never produced.
func (s Scraper) Run(ctx context.Context) (facility.Dataset, error) {
	ctx, span := tracer.Start(ctx, "scraper:Run")
	defer span.End()

	var dataset facility.Dataset
	seen := map[int]bool{}

	err := s.walker.Walk(ctx, func(page Page) error {
		if page.Index == 1 {
			slog.InfoContext(ctx, "pages to parse", "total", page.Total)
		}

		rows, err := s.extractor.ListRows(page.Body)
		if err != nil {
			return err
		}
		for _, row := range rows {
			// rows shift between pages when the site publishes a closure
			// mid-run
			if seen[row.Id] {
				slog.WarnContext(ctx, "skipping facility listed twice", "id", row.Id, "page", page.Index)
				continue
			}

			record, err := s.assembler.Assemble(ctx, row)
			if err != nil {
				return err
			}
			if record.ClosedBeforePublished() {
				slog.WarnContext(
					ctx, "facility closed before it was published",
					"id", record.Id,
					"closed", record.DateClosed.String(),
					"published", record.DatePublished.String(),
				)
			}
			seen[row.Id] = true
			dataset = append(dataset, record)
			recordCounter.Add(ctx, 1)
		}

		slog.InfoContext(ctx, "page scraped", "page", page.Index, "total", page.Total, "records", len(rows))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(dataset)))
	slog.InfoContext(ctx, "collected facilities", "count", len(dataset))
	return dataset, nil
}
