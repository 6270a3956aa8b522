package installer

// Scope names where an install lands.
type Scope string

const (
	ScopeUser   Scope = "user"
	ScopeSystem Scope = "system"
	ScopeVendor Scope = "vendor"
)
