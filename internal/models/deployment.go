package models

// ReadyState is the hosting provider's view of a deployment
type ReadyState string

const (
	ReadyStateQueued       ReadyState = "QUEUED"
	ReadyStateBuilding     ReadyState = "BUILDING"
	ReadyStateInitializing ReadyState = "INITIALIZING"
	ReadyStateReady        ReadyState = "READY"
	ReadyStateError        ReadyState = "ERROR"
	ReadyStateCanceled     ReadyState = "CANCELED"
)

// IsTerminal reports whether no further transition is expected
func (s ReadyState) IsTerminal() bool {
	switch s {
	case ReadyStateReady, ReadyStateError, ReadyStateCanceled:
		return true
	}
	return false
}

// DeploymentRecord is a read-only cached view of a provider deployment
type DeploymentRecord struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Name       string     `json:"name"`
	ReadyState ReadyState `json:"readyState"`
	ProjectID  string     `json:"projectId,omitempty"`
}
