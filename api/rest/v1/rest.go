package rest

import (
	"github.com/equestria-cloud/equestria/api/rest/controller/process"
	"github.com/equestria-cloud/equestria/api/rest/controller/project"
	"github.com/equestria-cloud/equestria/api/rest/controller/script"
	"github.com/labstack/echo/v4"
)

// Bind the REST endpoints to the versioned endpoint group.
func Bind(g *echo.Group) {
	// projects
	{
		g.GET("/projects", project.List)
		g.GET("/projects/:id", project.Get)
		g.POST("/projects", project.Post)
		g.DELETE("/projects/:id", project.Delete)
		g.POST("/projects/:id/upload", project.Upload)
		g.GET("/projects/:id/oov-dict", project.GetOOVDict)
		g.PUT("/projects/:id/oov-dict", project.PutOOVDict)
		g.GET("/projects/:id/archive", project.Archive)
		g.POST("/projects/:id/start-fa", project.StartFA)
		g.POST("/projects/:id/start-g2p", project.StartG2P)
	}

	// processes
	{
		g.GET("/processes/:id", process.Get)
		g.GET("/processes/:id/logs", process.Logs)
		g.POST("/processes/:id/download", process.Download)
	}

	// scripts
	{
		g.GET("/scripts", script.List)
		g.GET("/scripts/:id", script.Get)
		g.POST("/scripts/:id/refresh", script.Refresh)
	}

	// pipelines
	{
		g.GET("/pipelines", script.ListPipelines)
		g.GET("/pipelines/:id", script.GetPipeline)
	}
}
