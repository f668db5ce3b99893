// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/valetd/valet/pkg/core"
	"github.com/valetd/valet/pkg/storage"
)

// Projects reports project status. Tasks belong to projects, so the
// summary joins open task counts per project.
type Projects struct {
	store storage.Store
}

func NewProjects(store storage.Store) *Projects {
	return &Projects{store: store}
}

func (p *Projects) Kind() core.CapabilityKind { return core.KindProject }

func (p *Projects) Description() string {
	return "Summarizes project status and open work"
}

func (p *Projects) CanHandle(actx *core.AgentContext) float64 {
	if actx.Intent == "project" {
		return 1
	}
	return 0.2
}

func (p *Projects) Execute(ctx context.Context, actx *core.AgentContext) Result {
	result := Result{Kind: core.KindProject, Success: true, Data: map[string]any{}}

	projects, err := p.store.GetProjects(ctx, actx.UserID)
	if err != nil {
		result.Success = false
		result.Err = err.Error()
		return result
	}
	tasks, err := p.store.GetTasks(ctx, actx.UserID, false)
	if err != nil {
		result.Success = false
		result.Err = err.Error()
		return result
	}

	openByProject := map[string]int{}
	for _, task := range tasks {
		if task.ProjectID != "" {
			openByProject[task.ProjectID]++
		}
	}

	// Topic narrows to a single project when it names one.
	if actx.Topic != "" {
		for _, project := range projects {
			if strings.Contains(strings.ToLower(project.Name), strings.ToLower(actx.Topic)) {
				projects = []core.Project{project}
				break
			}
		}
	}

	result.Data["projects"] = projects
	if len(projects) == 0 {
		result.Fragments = append(result.Fragments, "You don't have any projects yet.")
		result.Suggestions = append(result.Suggestions, "Want me to set one up?")
		return result
	}

	for _, project := range projects {
		open := openByProject[project.ID]
		switch open {
		case 0:
			result.Fragments = append(result.Fragments,
				fmt.Sprintf("%s is %s with no open tasks.", project.Name, project.Status))
		case 1:
			result.Fragments = append(result.Fragments,
				fmt.Sprintf("%s is %s with 1 open task.", project.Name, project.Status))
		default:
			result.Fragments = append(result.Fragments,
				fmt.Sprintf("%s is %s with %d open tasks.", project.Name, project.Status, open))
		}
	}
	return result
}
