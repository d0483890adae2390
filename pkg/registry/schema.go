// pkg/registry/schema.go
package registry

type WorkflowRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Workflows   []Workflow `json:"workflows"`
}

type Workflow struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Path        string   `json:"path"`
	TaskType    string   `json:"taskType,omitempty"`
	ErrorCodes  []string `json:"errorCodes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
