package reference

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const randomBytes = 16

// Generator produces transfer references: a short tag followed by 128 bits
// of randomness in upper-case hex.
type Generator struct {
	source io.Reader
}

func NewGenerator() *Generator {
	return &Generator{source: rand.Reader}
}

func (g *Generator) Generate(prefix string) (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return "", fmt.Errorf("Generate: %w", err)
	}
	return strings.ToUpper(prefix) + strings.ToUpper(hex.EncodeToString(buf)), nil
}
