package uploader

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/imagegate/imagegate/internal/transcode"
)

// keyHashLen is how many hex characters of the content hash go into derived
// keys. 12 (48 bits) is plenty to separate same-named files with different
// content.
const keyHashLen = 12

// DeriveKey builds an object key from the source filename and a content hash:
// "<prefix>/<safe-name>_<hash12><ext>". Identical content under the same name
// always derives the same key, so re-uploading a batch overwrites rather than
// duplicates.
func DeriveKey(sourcePath, folderPrefix string, content []byte) string {
	filename := transcode.SafeFilename(filepath.Base(sourcePath))
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])[:keyHashLen]

	key := name + "_" + digest + ext
	if folderPrefix != "" {
		return strings.TrimRight(folderPrefix, "/") + "/" + key
	}
	return key
}
