package storage

import (
	"fmt"
	"path"

	"github.com/ruteri/name-registrar/interfaces"
)

// objectKey is the backend-independent key of a blob: "<type>/<hex id>".
func objectKey(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(contentType.String(), id.String())
}

func shortID(id interfaces.ContentID) string {
	return fmt.Sprintf("%x", id[:8])
}

// verifyContent checks that data hashes to id.
func verifyContent(id interfaces.ContentID, data []byte) error {
	if got := interfaces.ComputeID(data); got != id {
		return fmt.Errorf("content integrity check failed: want %s, got %s", id, got)
	}
	return nil
}
