package api

import (
	"context"
	"fmt"

	"github.com/equestria-cloud/equestria/api/gql"
	rest "github.com/equestria-cloud/equestria/api/rest/v1"
	"github.com/equestria-cloud/equestria/pkg/env"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
)

var e *echo.Echo

// Start launches equestria's API.
func Start(ctx context.Context) error {
	e = echo.New()
	e.HideBanner = true
	e.HidePort = true

	// health
	e.GET("/health", Health)

	// metrics
	prometheus.NewPrometheus("equestria", nil).Use(e)

	// REST
	rest.Bind(e.Group("/v1"))

	// GraphQL
	e.GET("/gql", gql.Handler())
	e.POST("/gql", gql.Handler())

	return e.Start(fmt.Sprintf(":%v", env.Variables().Port))
}

// Shutdown stops the API gracefully.
func Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.Shutdown(ctx)
}
