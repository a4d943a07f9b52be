// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Missing lists the task types that have no activity entry.
func (r *ActivityRegistry) Missing(taskTypes ...string) []string {
	var out []string
	for _, tt := range taskTypes {
		if _, ok := r.Find(tt); !ok {
			out = append(out, tt)
		}
	}
	return out
}

// Validate checks ids and task types are present and unique and that every
// timeout parses.
func (r *ActivityRegistry) Validate() error {
	var problems []string
	ids := map[string]bool{}
	taskTypes := map[string]bool{}

	for i, a := range r.Activities {
		switch {
		case a.ID == "":
			problems = append(problems, fmt.Sprintf("activity %d: id is required", i))
		case ids[a.ID]:
			problems = append(problems, fmt.Sprintf("activity %s: duplicate id", a.ID))
		}
		ids[a.ID] = true

		switch {
		case a.TaskType == "":
			problems = append(problems, fmt.Sprintf("activity %s: taskType is required", a.ID))
		case taskTypes[a.TaskType]:
			problems = append(problems, fmt.Sprintf("activity %s: taskType %s already bound", a.ID, a.TaskType))
		}
		taskTypes[a.TaskType] = true

		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s: timeout %q: %v", a.ID, a.Timeout, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid activity registry: %s", strings.Join(problems, "; "))
	}
	return nil
}
