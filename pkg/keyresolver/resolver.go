// Package keyresolver resolves the public key behind a verification
// method identifier (a DID URL, a did:key/did:jwk self-contained
// identifier, or a bare multikey) so callers can verify a JWS without
// first locating its signer out of band.
//
// Resolution is split the same way trust evaluation is: self-contained
// identifiers (did:key, did:jwk, raw multikey) are resolved locally with
// no network access; everything else (did:web, and any DID method this
// module doesn't special-case) requires fetching a DID document over
// HTTPS.
package keyresolver

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
)

// Resolver resolves a public key from a verification method identifier.
// It satisfies trust.KeyResolver.
type Resolver interface {
	ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error)
}

// CanResolveLocally reports whether verificationMethod is self-contained:
// did:key, did:jwk, or a bare multibase-encoded multikey (z.../u... prefix).
func CanResolveLocally(verificationMethod string) bool {
	return strings.HasPrefix(verificationMethod, "did:key:") ||
		strings.HasPrefix(verificationMethod, "did:jwk:") ||
		strings.HasPrefix(verificationMethod, "z") ||
		strings.HasPrefix(verificationMethod, "u")
}

// LocalResolver resolves did:key, did:jwk and bare multikey identifiers
// without making any network calls.
type LocalResolver struct{}

// NewLocalResolver builds a LocalResolver.
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{}
}

// ResolveKey implements Resolver.
func (l *LocalResolver) ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error) {
	switch {
	case strings.HasPrefix(verificationMethod, "did:key:"):
		return l.resolveDIDKey(verificationMethod)
	case strings.HasPrefix(verificationMethod, "did:jwk:"):
		return l.resolveDIDJWK(verificationMethod)
	case strings.HasPrefix(verificationMethod, "u"), strings.HasPrefix(verificationMethod, "z"):
		return decodeMultikey(verificationMethod)
	default:
		return nil, fmt.Errorf("keyresolver: unsupported local verification method format: %s", verificationMethod)
	}
}

func (l *LocalResolver) resolveDIDKey(didKey string) (crypto.PublicKey, error) {
	withoutPrefix := strings.TrimPrefix(didKey, "did:key:")
	multikey, _, _ := strings.Cut(withoutPrefix, "#")
	return decodeMultikey(multikey)
}

func (l *LocalResolver) resolveDIDJWK(didJWK string) (crypto.PublicKey, error) {
	withoutPrefix := strings.TrimPrefix(didJWK, "did:jwk:")
	encoded, _, _ := strings.Cut(withoutPrefix, "#")
	if encoded == "" {
		return nil, fmt.Errorf("keyresolver: empty did:jwk identifier")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("keyresolver: decode did:jwk: %w", err)
		}
	}

	return JWKBytesToPublicKey(raw)
}

// decodeMultikey decodes a multibase-encoded public key (multicodec
// prefix followed by raw key bytes) into a crypto.PublicKey.
// Ed25519 multicodec is 0xed01; P-256/P-384 compressed-point multicodecs
// are 0x1200/0x1201.
func decodeMultikey(multikey string) (crypto.PublicKey, error) {
	if multikey == "" {
		return nil, fmt.Errorf("keyresolver: empty multikey")
	}

	_, decoded, err := multibase.Decode(multikey)
	if err != nil {
		return nil, fmt.Errorf("keyresolver: decode multibase: %w", err)
	}
	if len(decoded) < 3 {
		return nil, fmt.Errorf("keyresolver: multikey too short: %d bytes", len(decoded))
	}

	if decoded[0] == 0xed && decoded[1] == 0x01 {
		key := decoded[2:]
		if len(key) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("keyresolver: invalid Ed25519 key size: %d", len(key))
		}
		return ed25519.PublicKey(key), nil
	}

	code, n := binary.Uvarint(decoded)
	if n <= 0 {
		return nil, fmt.Errorf("keyresolver: invalid multicodec varint")
	}
	switch code {
	case 0x1200:
		return decompressECDSAPoint(elliptic.P256(), decoded[n:])
	case 0x1201:
		return decompressECDSAPoint(elliptic.P384(), decoded[n:])
	default:
		return nil, fmt.Errorf("keyresolver: unsupported multicodec: 0x%x", code)
	}
}

func decompressECDSAPoint(curve elliptic.Curve, data []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.UnmarshalCompressed(curve, data)
	if x == nil {
		return nil, fmt.Errorf("keyresolver: failed to unmarshal compressed point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
