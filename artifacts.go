package tablepad

import (
	"sync"

	"github.com/google/uuid"
)

// downloadPrefix is the URL path artifacts are served under.
const downloadPrefix = "/downloads/"

// Blob is an in-memory export held until it is revoked.
type Blob struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Artifacts is the in-process registry of export blobs. An artifact stays
// downloadable until Revoke is called; issuing a new one does not revoke
// earlier ones.
type Artifacts struct {
	mu    sync.RWMutex
	blobs map[string]*Blob
}

// NewArtifacts creates an empty registry.
func NewArtifacts() *Artifacts {
	return &Artifacts{blobs: make(map[string]*Blob)}
}

// Create stores blob and returns its id and download URL.
func (a *Artifacts) Create(blob *Blob) (id, url string) {
	id = uuid.NewString()
	a.mu.Lock()
	a.blobs[id] = blob
	a.mu.Unlock()
	return id, DownloadURL(id)
}

// Get returns the blob registered under id.
func (a *Artifacts) Get(id string) (*Blob, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	blob, ok := a.blobs[id]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return blob, nil
}

// Revoke releases the blob registered under id.
func (a *Artifacts) Revoke(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.blobs[id]; !ok {
		return ErrArtifactNotFound
	}
	delete(a.blobs, id)
	return nil
}

// Len returns the number of live artifacts.
func (a *Artifacts) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.blobs)
}

// DownloadURL returns the URL path an artifact id is served under.
func DownloadURL(id string) string {
	return downloadPrefix + id
}
