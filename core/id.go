package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// randReader is the entropy source for generated ids.
var randReader io.Reader = rand.Reader

// NewPostID builds a 24-char hex identifier: 4 bytes of unix time followed by random bytes,
// so ids sort roughly by creation.
func NewPostID() (string, error) {
	ts := uint32(time.Now().Unix())
	prefix := []byte{byte(ts >> 24), byte(ts >> 16), byte(ts >> 8), byte(ts)}
	suffix, err := randomHex(8)
	if err != nil {
		return "", fmt.Errorf("generate post id: %w", err)
	}
	return hex.EncodeToString(prefix) + suffix, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
