// Command lambda-http serves the API behind an API Gateway HTTP API.
//
//	GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
//
// Deploy with NOTIFY_QUEUE_URL set: in-process sends stall while the
// sandbox is frozen between invocations.
package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/telemetry"
)

// proxy is built on the first invocation and reused while the sandbox is warm.
var proxy = sync.OnceValues(func() (*ginadapter.GinLambdaV2, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	return ginadapter.NewV2(app.Router), nil
})

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p, err := proxy()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error": err.Error(),
			"route": req.RouteKey,
		})
		return initFailure(), nil
	}
	return p.ProxyWithContext(ctx, req)
}

func initFailure() events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"success":false,"message":"Server initialization failed"}`,
	}
}

func main() {
	lambda.Start(handler)
}
