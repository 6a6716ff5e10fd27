package tools

// Func is a single invocable tool: named arguments in, Result out.
type Func func(input map[string]any) Result

// Registry maps tool names to implementations. A zero Registry is not
// usable; construct with NewRegistry.
type Registry struct {
	tools map[string]Func
}

// NewRegistry returns a Registry with the five standard CRM tools registered.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Func{
		"log_interaction":  LogInteraction,
		"edit_interaction": EditInteraction,
		"hcp_lookup":       HCPLookup,
		"compliance_check": ComplianceCheck,
		"next_best_action": NextBestAction,
	}}
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return []string{"log_interaction", "edit_interaction", "hcp_lookup", "compliance_check", "next_best_action"}
}

// Execute invokes the named tool. Unknown names and panics inside a tool
// are converted to error Results; a tool never fails past this boundary.
func (r *Registry) Execute(name string, input map[string]any) (result Result) {
	tool, ok := r.tools[name]
	if !ok {
		return errorResult("Tool %q not found", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = errorResult("Tool execution failed: %v", rec)
		}
	}()

	return tool(input)
}
