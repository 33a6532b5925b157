package artifact

import (
	"path"
	"path/filepath"

	"diary-service/internal/models"
)

// Transport names for configuration.
const (
	TransportLink = "link"
	TransportPath = "path"
)

// Publisher persists a processed record set and returns a retrieval handle.
// Deployments differ in what callers want back: a download link served by
// this process, or a path on shared storage. Both strategies write through
// the same store; only the handle differs.
type Publisher interface {
	Publish(prefix string, records models.RecordSet) (string, error)
}

// LinkPublisher hands back a download link under the artifact endpoint.
type LinkPublisher struct {
	Store    *Store
	BasePath string
}

func (p *LinkPublisher) Publish(prefix string, records models.RecordSet) (string, error) {
	name, err := p.Store.WriteCSV(prefix, records)
	if err != nil {
		return "", err
	}
	return path.Join(p.BasePath, name), nil
}

// PathPublisher hands back the artifact's location on disk, for callers that
// share the scratch filesystem with this process.
type PathPublisher struct {
	Store *Store
}

func (p *PathPublisher) Publish(prefix string, records models.RecordSet) (string, error) {
	name, err := p.Store.WriteCSV(prefix, records)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.Store.Dir(), name), nil
}

// NewPublisher picks the transport strategy by name; unknown names get the
// link strategy.
func NewPublisher(transport, basePath string, store *Store) Publisher {
	if transport == TransportPath {
		return &PathPublisher{Store: store}
	}
	return &LinkPublisher{Store: store, BasePath: basePath}
}
