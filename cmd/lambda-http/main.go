package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"resume-ranker/internal/bootstrap"
	"resume-ranker/internal/shared/config"
	"resume-ranker/internal/shared/telemetry"
)

// proxy builds the router on the first invocation and reuses it while the
// execution environment stays warm. A failed build is not retried.
type proxy struct {
	build func() (*gin.Engine, error)

	once    sync.Once
	adapter *ginadapter.GinLambdaV2
	err     error
}

func newProxy(build func() (*gin.Engine, error)) *proxy {
	return &proxy{build: build}
}

func buildRouter() (*gin.Engine, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

func (p *proxy) init() {
	router, err := p.build()
	if err != nil {
		p.err = err
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return
	}
	p.adapter = ginadapter.NewV2(router)
	telemetry.Info("lambda.bootstrap_ready", nil)
}

// Handle proxies one API Gateway HTTP API event through the router.
func (p *proxy) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p.once.Do(p.init)
	if p.err != nil {
		return errorResponse(http.StatusInternalServerError, "bootstrap failed"), nil
	}
	if p.adapter == nil {
		return errorResponse(http.StatusInternalServerError, "router not initialized"), nil
	}
	return p.adapter.ProxyWithContext(ctx, req)
}

func errorResponse(status int, msg string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(newProxy(buildRouter).Handle)
}
