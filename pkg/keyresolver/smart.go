package keyresolver

import (
	"context"
	"crypto"
)

// SmartResolver routes resolution to a LocalResolver for self-contained
// identifiers and to a remote Resolver (typically a DIDWebResolver) for
// everything else.
type SmartResolver struct {
	local  *LocalResolver
	remote Resolver
}

// NewSmartResolver builds a SmartResolver. remote handles any
// verification method CanResolveLocally rejects.
func NewSmartResolver(remote Resolver) *SmartResolver {
	return &SmartResolver{local: NewLocalResolver(), remote: remote}
}

// ResolveKey implements Resolver.
func (s *SmartResolver) ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error) {
	if CanResolveLocally(verificationMethod) {
		return s.local.ResolveKey(ctx, verificationMethod)
	}
	return s.remote.ResolveKey(ctx, verificationMethod)
}

// LocalResolver returns the local resolver used for self-contained DIDs.
func (s *SmartResolver) LocalResolver() *LocalResolver {
	return s.local
}

// RemoteResolver returns the resolver used for everything else.
func (s *SmartResolver) RemoteResolver() Resolver {
	return s.remote
}
