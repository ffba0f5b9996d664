package auth

// Scopes recognized by the scheduling API.
const (
	ScopeScheduleRead  = "schedule:read"
	ScopeScheduleWrite = "schedule:write"
)
