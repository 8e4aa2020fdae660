package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// lambdaFlushTimeout bounds the post-invocation metrics flush.
const lambdaFlushTimeout = 2 * time.Second

// runLambda serves API Gateway v2 HTTP events through the server router.
func runLambda(a *app, logger *slog.Logger) error {
	logger.Info("starting in Lambda mode")
	lambda.Start(newLambdaHandler(a, logger).Handle)
	return nil
}

// lambdaHandler proxies API Gateway v2 HTTP events into the router.
// Buffered metrics are flushed after every invocation because the execution
// environment may be frozen between events.
type lambdaHandler struct {
	adapter *httpadapter.HandlerAdapterV2
	flusher interface{ Flush(context.Context) error }
	logger  *slog.Logger
}

func newLambdaHandler(a *app, logger *slog.Logger) *lambdaHandler {
	h := &lambdaHandler{adapter: httpadapter.NewV2(a.srv.Handler()), logger: logger}
	if a.collector != nil {
		h.flusher = a.collector
	}
	return h
}

// Handle serves one event and flushes metrics whatever the outcome.
func (h *lambdaHandler) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := h.adapter.ProxyWithContext(ctx, event)

	if h.flusher != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lambdaFlushTimeout)
		if ferr := h.flusher.Flush(flushCtx); ferr != nil {
			h.logger.WarnContext(ctx, "metrics flush failed", "error", ferr)
		}
		cancel()
	}

	return resp, err
}
