package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/Yoga07/stagehand/pipeline"
)

// Key is a resolved cache identity: "prefix:hash" or the bare hex hash when
// the spec carries no prefix.
type Key string

// String returns the string representation of the Key.
func (k Key) String() string {
	return string(k)
}

// Resolver computes cache keys from the workspace filesystem. The filesystem
// is injected so the resolver works identically against an OS-backed
// workspace and an in-memory one in tests.
type Resolver struct {
	fs billy.Filesystem
}

// NewResolver creates a Resolver reading key inputs from fs.
func NewResolver(fs billy.Filesystem) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve computes the key for a cache spec: SHA-256 over the concatenated
// bytes of each listed file, in the listed order. The order is part of the
// identity; Resolve never reorders or deduplicates the list.
//
// Resolve fails with ErrMissingInput if any listed file does not exist.
func (r *Resolver) Resolve(spec *pipeline.CacheSpec) (Key, error) {
	hasher := sha256.New()
	for _, path := range spec.Key.Files {
		content, err := util.ReadFile(r.fs, path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", WrapErrorf(ErrMissingInput, "key input %q", path)
			}
			return "", WrapErrorf(err, "reading key input %q", path)
		}
		hasher.Write(content)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	if spec.Key.Prefix != "" {
		return Key(spec.Key.Prefix + ":" + hash), nil
	}
	return Key(hash), nil
}
