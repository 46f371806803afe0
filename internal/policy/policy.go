package policy

import "errors"

// Policy is one named traffic rule distributed to endpoint agents.
type Policy struct {
	ID       int64  `json:"id"`
	AppName  string `json:"app_name"`
	Protocol string `json:"protocol"`
	Port     int    `json:"port"`
	Action   string `json:"action"`
}

// ErrNotFound reports an unknown policy id.
var ErrNotFound = errors.New("policy not found")

// Store is the persistence contract for policies.
type Store interface {
	Create(p Policy) (Policy, error)
	List(offset, limit int) ([]Policy, error)
	Get(id int64) (Policy, error)
	Update(p Policy) (Policy, error)
	Delete(id int64) error

	// All returns every policy, for the agent sync endpoint.
	All() ([]Policy, error)
}
