package types

import "fmt"

// Layer identifies a container image layer by name, repository and digest.
// The digest is either a content hash (committed layer) or an upload token
// (in-flight session); the two are not distinguished structurally.
type Layer struct {
	Name   string `json:"name"`
	Repo   string `json:"repo"`
	Digest string `json:"digest"`
}

// String returns a compact representation used in logs
func (l Layer) String() string {
	return fmt.Sprintf("%s/%s@%s", l.Name, l.Repo, l.Digest)
}

// LayerExistsResult reports whether a committed layer is present and its size
type LayerExistsResult struct {
	Success bool   `json:"success"`
	Length  uint64 `json:"length"`
}

// GenUuidResult carries a freshly issued upload token
type GenUuidResult struct {
	Uuid string `json:"uuid"`
}

// Result is the generic success flag response
type Result struct {
	Success bool `json:"success"`
}

// Manifest is the opaque manifest upload payload
type Manifest struct {
	Name    string `json:"name"`
	Repo    string `json:"repo"`
	Ref     string `json:"ref"`
	Content []byte `json:"content"`
}

// Empty is the request body of parameterless calls
type Empty struct{}

// UuidList is the admin listing of active upload tokens
type UuidList struct {
	Uuids []GenUuidResult `json:"uuids"`
}

// SessionList is the admin listing of active upload sessions
type SessionList struct {
	Sessions []Layer `json:"sessions"`
}
