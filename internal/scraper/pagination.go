package scraper

import (
	"context"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Page struct {
	// 1-based
	Index int
	Total int
	Body  []byte
}

// Walker fetches list pages one after another within a single session.
type Walker struct {
	Fetcher   Fetcher
	Extractor Extractor
	Endpoint  string
	Params    url.Values
	// by default the first response doubles as page 1, this requests it
	// again after the page count is known
	RefetchFirstPage bool
}

func (w Walker) fetchPage(ctx context.Context, index int) ([]byte, error) {
	params := url.Values{}
	for k, v := range w.Params {
		params[k] = append([]string(nil), v...)
	}
	params.Set("page", strconv.Itoa(index))

	body, err := w.Fetcher.Fetch(ctx, w.Endpoint, params)
	if err != nil {
		return nil, err
	}
	listPageCounter.Add(ctx, 1)
	return body, nil
}

// Walk calls fn for pages 1 to N in order, N being the page count read from
// page 1. The count is not re-checked on later pages. Walk stops at the
// first error, from fetching or from fn.
func (w Walker) Walk(ctx context.Context, fn func(page Page) error) error {
	ctx, span := tracer.Start(ctx, "walker:Walk")
	defer span.End()

	first, err := w.fetchPage(ctx, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch first page")
		return err
	}
	total, err := w.Extractor.PageCount(first)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read page count")
		return err
	}
	span.SetAttributes(attribute.Int("pages", total))

	for i := 1; i <= total; i++ {
		body := first
		if i > 1 || w.RefetchFirstPage {
			body, err = w.fetchPage(ctx, i)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch page")
				return err
			}
		}

		err = fn(Page{Index: i, Total: total, Body: body})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to process page")
			return err
		}
	}
	return nil
}
