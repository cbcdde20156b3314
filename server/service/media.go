package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mistriapp/mistri/server/mistri"
)

// memMediaStore is an in-process mistri.MediaStore. Contents are held in
// memory and served back from the media route, which is enough for a single
// instance; multi-instance deployments configure an external store instead.
type memMediaStore struct {
	urlPrefix string

	mtx  sync.Mutex
	data map[string][]byte
}

// NewMemMediaStore creates an in-memory media store. Returned URLs are
// rooted at urlPrefix.
func NewMemMediaStore(urlPrefix string) mistri.MediaStore {
	return &memMediaStore{
		urlPrefix: urlPrefix,
		data:      make(map[string][]byte),
	}
}

func (m *memMediaStore) Put(ctx context.Context, jobID, name string, contents io.Reader) (string, error) {
	b, err := io.ReadAll(contents)
	if err != nil {
		return "", err
	}

	key := jobID + "/" + name
	m.mtx.Lock()
	m.data[key] = b
	m.mtx.Unlock()

	return fmt.Sprintf("%s/media/%s", m.urlPrefix, key), nil
}
