package services

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const saltSize = 32

// SaltGenerator produces the single-use CREATE2 salt of a deployment attempt
type SaltGenerator interface {
	Generate() (string, error)
}

type saltGenerator struct {
	source io.Reader
}

// NewSaltGenerator reads salts from source. A nil source uses crypto/rand.
func NewSaltGenerator(source io.Reader) SaltGenerator {
	if source == nil {
		source = rand.Reader
	}
	return &saltGenerator{source: source}
}

// Generate returns 32 random bytes as 0x-prefixed hex. An all-zero draw is discarded.
func (g *saltGenerator) Generate() (string, error) {
	zero := make([]byte, saltSize)
	for attempt := 0; attempt < 3; attempt++ {
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(g.source, salt); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		if !bytes.Equal(salt, zero) {
			return hexutil.Encode(salt), nil
		}
	}
	return "", fmt.Errorf("failed to generate salt: random source returned only zeros")
}
