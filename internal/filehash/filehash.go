// Package filehash computes the ed2k content hash used to identify shared files.
package filehash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/md4"
)

// PartSize is the ed2k chunk size in bytes.
const PartSize = 9728000

// ED2K reads r to the end and returns its ed2k hash (lowercase hex) and length.
//
// Input shorter than one part hashes to its plain MD4. Longer input hashes to the MD4 of
// the concatenated part digests; when the length is an exact multiple of PartSize the
// digest of an empty trailing part is appended, as eMule does.
func ED2K(r io.Reader) (string, int64, error) {
	var (
		parts []byte
		size  int64
		buf   = make([]byte, PartSize)
	)
	for {
		n, err := io.ReadFull(r, buf)
		size += int64(n)
		if n == PartSize || (n > 0 && len(parts) > 0) {
			parts = appendDigest(parts, buf[:n])
		} else if n > 0 {
			// Short first part: the whole input fits in one chunk.
			return hex.EncodeToString(appendDigest(nil, buf[:n])), size, nil
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return "", size, fmt.Errorf("failed to read: %w", err)
		}
	}
	if len(parts) == 0 {
		return hex.EncodeToString(appendDigest(nil, nil)), 0, nil
	}
	if size%PartSize == 0 {
		parts = appendDigest(parts, nil)
	}
	return hex.EncodeToString(appendDigest(nil, parts)), size, nil
}

// File hashes the file at path.
func File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ED2K(f)
}

func appendDigest(dst, data []byte) []byte {
	h := md4.New()
	h.Write(data)
	return h.Sum(dst)
}
