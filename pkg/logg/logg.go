// Package logg holds the structured logging keys shared by every layer.
package logg

const (
	Layer     = "layer"
	Operation = "op"
	URL       = "url"
	Path      = "path"
	Selector  = "selector"
	Strategy  = "strategy"
	Locator   = "locator"
	CycleID   = "cycle_id"
	FindingID = "finding_id"
	State     = "state"
	Tag       = "tag"
)
