package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

const blockSize = sha256.Size // 32 bytes per HMAC round

// Stream produces the deterministic byte sequence for one (serverSeed,
// clientSeed, nonce) triple. Block r is
// HMAC-SHA256(key=serverSeed, msg="{clientSeed}:{nonce}:{r}") and blocks are
// consumed sequentially starting at byte offset 0. Any independent
// implementation fed the same three inputs must reproduce the stream
// byte-for-byte.
type Stream struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	cursor     int
	block      []byte
	round      int
}

func NewStream(serverSeed, clientSeed string, nonce uint64) *Stream {
	return &Stream{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
		round:      -1,
	}
}

// Cursor reports how many bytes have been consumed so far.
func (s *Stream) Cursor() int {
	return s.cursor
}

func (s *Stream) hmacBlock(round int) []byte {
	mac := hmac.New(sha256.New, []byte(s.serverSeed))
	fmt.Fprintf(mac, "%s:%d:%d", s.clientSeed, s.nonce, round)
	return mac.Sum(nil)
}

// Bytes consumes and returns the next n bytes of the stream.
func (s *Stream) Bytes(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		round := s.cursor / blockSize
		if round != s.round {
			s.block = s.hmacBlock(round)
			s.round = round
		}
		out[i] = s.block[s.cursor%blockSize]
		s.cursor++
	}
	return out
}

// Float consumes 4 bytes, big-endian, and maps them to [0, 1).
func (s *Stream) Float() float64 {
	u := binary.BigEndian.Uint32(s.Bytes(4))
	return float64(u) / (1 << 32)
}

// Int consumes one float and maps it to an integer in [min, max].
func (s *Stream) Int(min, max int) int {
	return int(s.Float()*float64(max-min+1)) + min
}

// Shuffle returns a permutation of [0, n). Fisher-Yates from the last index
// down to the first, consuming one float per swap to pick the partner in
// [0, i]. Draw order is part of the fairness contract and must not change.
func (s *Stream) Shuffle(n int) []int {
	deck := make([]int, n)
	for i := range deck {
		deck[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.Int(0, i)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}
