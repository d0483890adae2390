// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

func LoadRegistry(path string) (*WorkflowRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg WorkflowRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

func SaveRegistry(reg *WorkflowRegistry, path string) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func New(version string, workflows ...Workflow) *WorkflowRegistry {
	return &WorkflowRegistry{Version: version, Workflows: workflows}
}

// Lookup finds a workflow by id.
func (r *WorkflowRegistry) Lookup(id string) (Workflow, bool) {
	for _, wf := range r.Workflows {
		if wf.ID == id {
			return wf, true
		}
	}
	return Workflow{}, false
}

func (r *WorkflowRegistry) All() []Workflow {
	out := make([]Workflow, len(r.Workflows))
	copy(out, r.Workflows)
	return out
}

func (r *WorkflowRegistry) Validate() error {
	if len(r.Workflows) == 0 {
		return fmt.Errorf("registry contains no workflows")
	}
	ids := make(map[string]bool)
	paths := make(map[string]bool)
	for _, wf := range r.Workflows {
		if wf.ID == "" {
			return fmt.Errorf("workflow missing required field: ID")
		}
		if ids[wf.ID] {
			return fmt.Errorf("duplicate workflow ID: %s", wf.ID)
		}
		ids[wf.ID] = true

		if wf.DisplayName == "" {
			return fmt.Errorf("workflow %s missing required field: displayName", wf.ID)
		}
		if !strings.HasPrefix(wf.Path, "/") {
			return fmt.Errorf("workflow %s path must start with /", wf.ID)
		}
		if paths[wf.Path] {
			return fmt.Errorf("duplicate workflow path: %s", wf.Path)
		}
		paths[wf.Path] = true
	}
	return nil
}

// Overlay copies descriptive fields from other onto workflows with the same id.
// Ids and paths are owned by the code and never change.
func (r *WorkflowRegistry) Overlay(other *WorkflowRegistry) {
	for i := range r.Workflows {
		o, ok := other.Lookup(r.Workflows[i].ID)
		if !ok {
			continue
		}
		if o.DisplayName != "" {
			r.Workflows[i].DisplayName = o.DisplayName
		}
		if o.Description != "" {
			r.Workflows[i].Description = o.Description
		}
		if o.Category != "" {
			r.Workflows[i].Category = o.Category
		}
		if len(o.Tags) > 0 {
			r.Workflows[i].Tags = o.Tags
		}
	}
	if other.Version != "" {
		r.Version = other.Version
	}
}
