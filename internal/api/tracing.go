package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/middleware/http"
	httpreporter "github.com/openzipkin/zipkin-go/reporter/http"
)

// NewTracing builds a zipkin server middleware reporting to collector
// (host:port). The returned closer flushes pending spans.
func NewTracing(serviceName, collector, listenAddr string) (func(http.Handler) http.Handler, io.Closer, error) {
	reporter := httpreporter.NewReporter("http://" + collector + "/api/v2/spans")

	endpoint, err := zipkin.NewEndpoint(serviceName, listenAddr)
	if err != nil {
		reporter.Close()
		return nil, nil, fmt.Errorf("unable to create local endpoint: %w", err)
	}

	tracer, err := zipkin.NewTracer(reporter, zipkin.WithLocalEndpoint(endpoint))
	if err != nil {
		reporter.Close()
		return nil, nil, fmt.Errorf("unable to create tracer: %w", err)
	}

	return zipkinhttp.NewServerMiddleware(tracer, zipkinhttp.TagResponseSize(true)), reporter, nil
}
