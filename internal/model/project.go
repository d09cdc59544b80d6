package model

// Project is a named deployment target. Projects come into existence on first
// deploy and are never implicitly deleted.
type Project struct {
	Name        string `json:"name"`
	Environment string `json:"environment,omitempty"`
}
