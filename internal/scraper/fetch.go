package scraper

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"foodpillory/lib/restyutil"
	"foodpillory/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Fetcher performs GET requests within one session and returns raw bodies.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

type ClientOptions struct {
	Headers map[string]string
	// per attempt
	Timeout time.Duration
	// total number of attempts, including the first one
	Attempts  int
	RetryWait time.Duration
	// if set, every exchange is written to it while debug logging is on
	Dump restyutil.InstrumentOutput
}

// Client is the session shared by every request of one run: the cookie jar
// carries the paging state the search endpoint keeps per session.
type Client struct {
	Http *resty.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryWait := opts.RetryWait
	if retryWait <= 0 {
		retryWait = 100 * time.Millisecond
	}

	client := resty.New()
	client.SetLogger(restyutil.Logger{})
	client.SetCookieJar(jar)
	client.SetHeaders(opts.Headers)
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(attempts - 1)
	client.SetRetryWaitTime(retryWait)
	client.SetRetryMaxWaitTime(retryWait * 8)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res != nil && res.StatusCode() >= http.StatusInternalServerError
	})

	telemetry.InstrumentResty(client, "foodpillory/scraper/http")
	restyutil.InstrumentClient(client, opts.Dump)

	return &Client{Http: client}, nil
}

func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()

	span.SetAttributes(
		attribute.String("url", endpoint),
		attribute.String("query", params.Encode()),
	)

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, &NetworkError{Url: endpoint, Err: err}
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, &NetworkError{Url: endpoint, Status: res.StatusCode()}
	}

	return res.Body(), nil
}
