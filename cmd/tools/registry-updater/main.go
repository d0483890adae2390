// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"esign-workflows/internal/orchestrator"
	"esign-workflows/pkg/registry"
)

const defaultPath = "configs/workflow-registry.json"

// knownWorkflows are the ids the portal can serve. The registry file may only
// describe these.
var knownWorkflows = []string{
	orchestrator.WorkflowBulkSend,
	orchestrator.WorkflowEmbeddedSending,
	orchestrator.WorkflowEmbeddedSigning,
	orchestrator.WorkflowSMSAuthentication,
}

func main() {
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	syncPath := syncCmd.String("path", defaultPath, "Path to registry file")
	syncVersion := syncCmd.String("version", "1.0.0", "Version for a new registry")

	updatePath := updateCmd.String("path", defaultPath, "Path to registry file")
	id := updateCmd.String("id", "", "Workflow ID (e.g., bulk-send)")
	field := updateCmd.String("field", "", "Field to update (displayName, description, category, tags)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultPath, "Path to registry file")
	listPath := listCmd.String("path", defaultPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "sync":
		_ = syncCmd.Parse(os.Args[2:])
		var added []string
		added, err = syncRegistry(*syncPath, *syncVersion)
		if err == nil {
			fmt.Printf("Registry synced. Added: %s\n", joinOrNone(added))
		}

	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if *id == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = updateWorkflow(*updatePath, *id, *field, *value)
		if err == nil {
			fmt.Printf("Updated workflow %s, field %s to %s\n", *id, *field, *value)
		}

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		var n int
		n, err = validateRegistry(*validatePath)
		if err == nil {
			fmt.Printf("Registry validation passed. Found %d workflows.\n", n)
		}

	case "list":
		_ = listCmd.Parse(os.Args[2:])
		err = listWorkflows(*listPath)

	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// syncRegistry adds a placeholder entry for every known workflow missing from
// the file, creating the file when needed. Existing entries are untouched.
func syncRegistry(path, version string) ([]string, error) {
	reg, err := registry.LoadRegistry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		reg = registry.New(version)
	case err != nil:
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	var added []string
	for _, wfID := range knownWorkflows {
		if _, ok := reg.Lookup(wfID); ok {
			continue
		}
		reg.Workflows = append(reg.Workflows, registry.Workflow{
			ID:          wfID,
			DisplayName: titleize(wfID),
			Path:        "/" + wfID,
		})
		added = append(added, wfID)
	}

	if err := save(reg, path); err != nil {
		return nil, err
	}
	return added, nil
}

func updateWorkflow(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	idx := -1
	for i := range reg.Workflows {
		if reg.Workflows[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("workflow with ID %s not found", id)
	}

	wf := &reg.Workflows[idx]
	switch field {
	case "displayName":
		wf.DisplayName = value
	case "description":
		wf.Description = value
	case "category":
		wf.Category = value
	case "tags":
		wf.Tags = splitTags(value)
	case "id", "path":
		return fmt.Errorf("field %s is owned by the portal and cannot be changed here", field)
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	return save(reg, path)
}

func validateRegistry(path string) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	for _, wf := range reg.Workflows {
		if !isKnown(wf.ID) {
			return 0, fmt.Errorf("unknown workflow ID: %s", wf.ID)
		}
		if wf.Path != "/"+wf.ID {
			return 0, fmt.Errorf("workflow %s must be served at /%s, got %s", wf.ID, wf.ID, wf.Path)
		}
	}
	return len(reg.Workflows), nil
}

func listWorkflows(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	fmt.Printf("Registry %s (updated %s)\n", reg.Version, reg.LastUpdated)
	for _, wf := range reg.All() {
		fmt.Printf("  %-20s %-10s %s\n", wf.ID, wf.Category, wf.DisplayName)
	}
	return nil
}

func save(reg *registry.WorkflowRegistry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := registry.SaveRegistry(reg, path); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func isKnown(id string) bool {
	for _, k := range knownWorkflows {
		if k == id {
			return true
		}
	}
	return false
}

func titleize(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func splitTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  sync      Add entries for workflows missing from the registry file
  update    Update a descriptive field of a workflow
  validate  Validate the registry file
  list      Print the workflows in the registry file
  help      Show this help message

Examples:
  registry-updater sync -path configs/workflow-registry.json
  registry-updater update -id bulk-send -field displayName -value "Send to a class"
  registry-updater update -id bulk-send -field tags -value "bulk,expiration"
  registry-updater validate -path configs/workflow-registry.json

Use 'registry-updater <command> -h' for more information about a command.

`)
}
