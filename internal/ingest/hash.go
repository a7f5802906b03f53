package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// hashChunkSize bounds how much of the stream is held per read while hashing.
const hashChunkSize = 4096

// HashReader streams r through SHA-256 and returns the lowercase hex digest.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to hash content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes is HashReader over an in-memory upload.
func HashBytes(data []byte) string {
	// bytes.Reader never returns a non-EOF error
	digest, _ := HashReader(bytes.NewReader(data))
	return digest
}
