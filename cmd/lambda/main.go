// Command lambda serves the graph API behind an API Gateway HTTP API.
package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/config"
	"github.com/xqvvu/yokg/internal/di"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
	coldStart = true
)

// init runs once per execution environment.
func init() {
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	mux, ok := container.Handler.(*chi.Mux)
	if !ok {
		log.Fatal("Router is not a chi.Mux")
	}
	chiLambda = chiadapter.NewV2(mux)

	container.Logger().Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(started)),
		zap.Strings("config", cfg.LoadedFrom),
	)
}

// Handler proxies one API Gateway v2 request through the router.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if coldStart {
		container.Logger().Debug("Serving first request after cold start",
			zap.String("request_id", req.RequestContext.RequestID),
		)
		coldStart = false
	}
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
