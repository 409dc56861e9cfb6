package storage

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// BlobID is the content address of an artifact.
func BlobID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CommitID derives a commit id from everything the commit records, so two
// commits only share an id when they are indistinguishable.
func CommitID(parent, author, message string, ts time.Time, tree map[string]string) string {
	h := sha1.New()
	fmt.Fprintf(h, "parent %s\nauthor %s\ntime %d\n", parent, author, ts.UnixNano())

	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "entry %s %s\n", tree[name], name)
	}
	fmt.Fprintf(h, "\n%s", message)
	return hex.EncodeToString(h.Sum(nil))
}
