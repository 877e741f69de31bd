package ldp

import (
	"crypto/sha256"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

// Canonicalizer performs RDF Dataset Canonicalization (RDFC-1.0 / URDNA2015)
// over a JSON-LD document, the step both Data Integrity cryptosuites and the
// JsonWebSignature2020 suite use to turn a document into the byte string
// that actually gets signed.
type Canonicalizer struct {
	loader ld.DocumentLoader
}

// NewCanonicalizer creates a Canonicalizer. A nil loader uses json-gold's
// default (network-fetching) loader.
func NewCanonicalizer(loader ld.DocumentLoader) *Canonicalizer {
	return &Canonicalizer{loader: loader}
}

func (c *Canonicalizer) options() *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions("")
	opts.Algorithm = ld.AlgorithmURDNA2015
	opts.Format = "application/n-quads"
	if c.loader != nil {
		opts.DocumentLoader = c.loader
	}
	return opts
}

// Canonicalize converts a JSON-LD document into canonical N-Quads.
func (c *Canonicalizer) Canonicalize(doc any) (string, error) {
	proc := ld.NewJsonLdProcessor()

	normalized, err := proc.Normalize(doc, c.options())
	if err != nil {
		return "", fmt.Errorf("ldp: normalize: %w", err)
	}

	str, ok := normalized.(string)
	if !ok {
		return "", fmt.Errorf("ldp: unexpected normalize result type %T", normalized)
	}
	return str, nil
}

// Hash canonicalizes doc and returns the SHA-256 digest of the result, the
// per-document half of the "proof hash || document hash" construction every
// cryptosuite here uses as its signature input.
func (c *Canonicalizer) Hash(doc any) ([32]byte, error) {
	canonical, err := c.Canonicalize(doc)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256([]byte(canonical)), nil
}
