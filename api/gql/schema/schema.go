// Package schema declares equestria's read-only GraphQL
// surface: a projects query with the derived workflow
// state nested inline, so a dashboard can render in one
// round trip.
package schema

import (
	"fmt"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/graphql-go/graphql"
)

// New instantiates a fresh GraphQL schema for
// equestria's API.
func New() graphql.SchemaConfig {
	return graphql.SchemaConfig{
		Query: graphql.NewObject(
			graphql.ObjectConfig{
				Name:   "Query",
				Fields: fields(),
			},
		),
	}
}

type processView struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	ClamID string `json:"clamId"`
}

type projectView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Folder         string       `json:"folder"`
	NextStep       string       `json:"nextStep"`
	CurrentProcess *processView `json:"currentProcess"`
}

var processType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Process",
	Fields: graphql.Fields{
		"id":     &graphql.Field{Type: graphql.String},
		"status": &graphql.Field{Type: graphql.String},
		"clamId": &graphql.Field{Type: graphql.String},
	},
})

var projectType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Project",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.String},
		"name":           &graphql.Field{Type: graphql.String},
		"folder":         &graphql.Field{Type: graphql.String},
		"nextStep":       &graphql.Field{Type: graphql.String},
		"currentProcess": &graphql.Field{Type: processType},
	},
})

func fields() graphql.Fields {
	return graphql.Fields{
		"projects": &graphql.Field{
			Type: graphql.NewList(projectType),
			Args: graphql.FieldConfigArgument{
				"user": &graphql.ArgumentConfig{
					Type: graphql.NewNonNull(graphql.String),
				},
			},
			Resolve: resolveProjects,
		},
	}
}

func resolveProjects(p graphql.ResolveParams) (interface{}, error) {
	user, ok := p.Args["user"].(string)
	if !ok {
		return nil, fmt.Errorf("user argument is required")
	}

	svc := psvc.Service(p.Context)

	projects, err := svc.List(user)
	if err != nil {
		return nil, err
	}

	views := make([]*projectView, 0, len(projects))
	for i := range projects {
		views = append(views, view(svc, &projects[i]))
	}

	return views, nil
}

func view(svc psvc.Project, p *models.Project) *projectView {
	v := &projectView{
		ID:     p.ID.String(),
		Name:   p.Name,
		Folder: p.Folder,
	}

	if step, err := svc.NextStep(p); err == nil {
		v.NextStep = string(step)
	}

	if p.CurrentProcess != nil {
		v.CurrentProcess = &processView{
			ID:     p.CurrentProcess.ID.String(),
			Status: p.CurrentProcess.Status.String(),
		}
		if p.CurrentProcess.ClamID != nil {
			v.CurrentProcess.ClamID = *p.CurrentProcess.ClamID
		}
	}

	return v
}
