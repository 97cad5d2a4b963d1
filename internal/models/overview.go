package models

// ProjectOverview is the structured result of the overview pass: a short
// description of the project's domain, stack, and architecture used to steer
// the discovery passes. A nil overview is valid; it is an enrichment, not
// a hard dependency.
type ProjectOverview struct {
	ProjectName  string   `json:"project_name"`
	Description  string   `json:"description"`
	Domain       string   `json:"domain"`
	TechStack    []string `json:"tech_stack"`
	Architecture string   `json:"architecture_type"`
	KeyEntities  []string `json:"key_entities"`
}
