package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddleware_PropagatesTraceContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var seenTraceID string
	r := mux.NewRouter()
	r.Use(Middleware(ServerServiceName))
	r.HandleFunc("/api/v1/todos", func(w http.ResponseWriter, req *http.Request) {
		seenTraceID = TraceID(req)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "new trace", traceParent: ""},
		{
			name:        "inbound traceparent",
			traceParent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()
			seenTraceID = ""

			req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status OK, got %d", rr.Code)
			}
			if seenTraceID == "" {
				t.Error("Expected the handler to see a trace id")
			}
			if tt.wantTraceID != "" && seenTraceID != tt.wantTraceID {
				t.Errorf("Expected trace id %s, got %s", tt.wantTraceID, seenTraceID)
			}

			spans := exporter.GetSpans()
			if len(spans) == 0 {
				t.Fatal("Expected at least one span to be created")
			}
			if spans[0].Name != "/api/v1/todos" {
				t.Errorf("Expected span named after the route, got %s", spans[0].Name)
			}
		})
	}
}
