package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ObjectStore holds binary conversion outputs.
type ObjectStore interface {
	// Upload writes r under objectName, overwriting any existing object,
	// and returns the stored object path.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	PublicURL(objectPath string) string
}

// ConversionObjectName is the per-user key of a binary conversion output.
func ConversionObjectName(userID string, unixMillis int64) string {
	return fmt.Sprintf("%s/%d-docling.zip", userID, unixMillis)
}

func joinURL(base, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(objectPath, "/")
}
