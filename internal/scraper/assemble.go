package scraper

import (
	"context"
	"net/url"
	"strconv"

	"foodpillory/internal/facility"
	"foodpillory/lib/timezone"

	"github.com/golang-sql/civil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Assembler joins a list row with the detail page of the same facility.
type Assembler struct {
	Fetcher        Fetcher
	Extractor      Extractor
	DetailEndpoint string
	// defaults to timezone.Today
	Today func() civil.Date
}

func (a Assembler) Assemble(ctx context.Context, row ListRow) (facility.Record, error) {
	ctx, span := tracer.Start(ctx, "assembler:Assemble")
	defer span.End()
	span.SetAttributes(attribute.Int("id", row.Id))

	fail := func(err error, message string) (facility.Record, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
		return facility.Record{}, err
	}

	published, err := ParseSourceDate("date_published", row.Published)
	if err != nil {
		return fail(err, "invalid publication date")
	}

	body, err := a.Fetcher.Fetch(ctx, a.DetailEndpoint, url.Values{
		"id": {strconv.Itoa(row.Id)},
	})
	if err != nil {
		return fail(err, "failed to fetch detail page")
	}
	detailPageCounter.Add(ctx, 1)

	detail, err := a.Extractor.Detail(body)
	if err != nil {
		return fail(err, "failed to parse detail page")
	}
	closed, err := ParseSourceDate("date_closed", detail.Closed)
	if err != nil {
		return fail(err, "invalid closure date")
	}

	today := a.Today
	if today == nil {
		today = timezone.Today
	}

	return facility.Record{
		Id:              row.Id,
		ReferenceNumber: detail.ReferenceNumber,
		TaxId:           detail.TaxId,
		Name:            row.Name,
		Address:         row.Address,
		Category:        row.Category,
		DatePublished:   published,
		DateClosed:      closed,
		DateBanLifted:   parseOptionalDate("date_ban_lifted", detail.Reopened),
		ClosureStatus:   detail.ClosureStatus,
		OffensesFound:   facility.SplitOffenses(row.Offenses),
		FetchedOn:       today(),
	}, nil
}
