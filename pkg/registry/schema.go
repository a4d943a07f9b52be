// pkg/registry/schema.go
package registry

// ActivityRegistry describes the job workers a BPMN modeler can bind service
// tasks to.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Version     string                 `json:"version"`
	TaskType    string                 `json:"taskType"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	// OutputSchema lists the variables written on completion.
	OutputSchema map[string]interface{} `json:"outputSchema"`
	// ErrorCodes are the BPMN error codes the worker throws.
	ErrorCodes []string `json:"errorCodes"`
	Timeout    string   `json:"timeout"`
	Retries    int      `json:"retries"`
	Tags       []string `json:"tags,omitempty"`
}
