package fair

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateServerSeed returns a fresh 32-byte server seed, hex encoded.
func GenerateServerSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateClientSeed returns a default 16-byte client seed, hex encoded.
// Users may replace it with their own value before the pair is first used.
func GenerateClientSeed() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashServerSeed returns the SHA-256 commitment of a server seed. The hash
// is published before play; the seed itself is revealed only on rotation.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// Snapshot is the frozen (serverSeed, clientSeed, nonce) triple reserved for
// a single bet. The same snapshot always yields the same byte stream.
type Snapshot struct {
	ServerSeed string
	ClientSeed string
	Nonce      uint64
}

// Stream opens a byte stream at cursor 0 for this snapshot.
func (s Snapshot) Stream() *Stream {
	return NewStream(s.ServerSeed, s.ClientSeed, s.Nonce)
}
