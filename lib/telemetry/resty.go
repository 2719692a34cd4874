package telemetry

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentResty records one span per attempt of every request, all of
// them children of the span in the request's context.
func InstrumentResty(client *resty.Client, tracerName string) {
	instrumentResty(client, otel.Tracer(tracerName))
}

// parentContextKey holds the request context from before the first attempt
// started its span.
type parentContextKey struct{}

func instrumentResty(client *resty.Client, tracer trace.Tracer) {
	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(cli *resty.Client, req *resty.Request) error {
		parent := req.Context()
		if req.Attempt > 1 {
			// a transport error gets no response, the span of the failed
			// attempt is only ended here
			previous := trace.SpanFromContext(parent)
			if previous.IsRecording() {
				previous.SetStatus(codes.Error, "retried")
				previous.SetAttributes(attribute.Int("request/attempt", req.Attempt-1))
			}
			previous.End()

			if ctx, ok := parent.Value(parentContextKey{}).(context.Context); ok {
				parent = ctx
			}
		}

		ctx, _ := tracer.Start(parent, req.Method)
		req.SetContext(context.WithValue(ctx, parentContextKey{}, parent))
		return nil
	}
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span := trace.SpanFromContext(res.Request.Context())
	defer span.End()

	// setting request attributes here since res.Request.RawRequest is nil in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	span.SetAttributes(
		attribute.Int("response/size", len(res.Body())),
		attribute.Int("request/attempt", res.Request.Attempt),
	)
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	return nil
}

func onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetName(fmt.Sprintf("http %s", req.Method))
	span.SetAttributes(attribute.Int("request/attempt", req.Attempt))

	if req.RawRequest == nil {
		return
	}
	span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
}
