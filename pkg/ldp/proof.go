package ldp

import (
	"fmt"
)

// Proof types and cryptosuites this adapter understands.
const (
	ProofTypeDataIntegrity = "DataIntegrityProof"
	ProofTypeJWS2020       = "JsonWebSignature2020"

	CryptosuiteEdDSA2022  = "eddsa-rdfc-2022"
	CryptosuiteECDSA2019  = "ecdsa-rdfc-2019" // covers both P-256 and P-384 keys; curve is read from the key itself
	ProofPurposeAssertion = "assertionMethod"
)

// Proof is the parsed form of a document's "proof" member.
type Proof struct {
	Type               string
	Cryptosuite        string
	VerificationMethod string
	ProofPurpose       string
	Created            string
	Domain             string
	Challenge          string
	ProofValue         string // multibase, DataIntegrityProof
	JWS                string // detached compact JWS, JsonWebSignature2020
	raw                map[string]any
}

// hasType reports whether a JSON-LD node's type (or @type) includes t.
func hasType(m map[string]any, t string) bool {
	v, ok := m["type"]
	if !ok {
		v, ok = m["@type"]
	}
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return val == t
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && s == t {
				return true
			}
		}
	}
	return false
}

// splitProof separates a document's embedded proof(s) from the rest of the
// document, returning the document with "proof" removed (the form every
// cryptosuite here canonicalizes and hashes) plus the parsed proof nodes.
// A document may carry more than one proof (e.g. a VP signed by two
// verification methods); callers verify against whichever one matches the
// resolved key.
func splitProof(doc map[string]any) (map[string]any, []*Proof, error) {
	rawProof, ok := doc["proof"]
	if !ok {
		return nil, nil, fmt.Errorf("ldp: document has no proof")
	}

	var nodes []map[string]any
	switch v := rawProof.(type) {
	case map[string]any:
		nodes = append(nodes, v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				nodes = append(nodes, m)
			}
		}
	default:
		return nil, nil, fmt.Errorf("ldp: unsupported proof value type %T", rawProof)
	}
	if len(nodes) == 0 {
		return nil, nil, fmt.Errorf("ldp: proof member is empty")
	}

	proofs := make([]*Proof, 0, len(nodes))
	for _, n := range nodes {
		p := &Proof{raw: n}
		if s, ok := n["type"].(string); ok {
			p.Type = s
		}
		if s, ok := n["cryptosuite"].(string); ok {
			p.Cryptosuite = s
		}
		if s, ok := n["verificationMethod"].(string); ok {
			p.VerificationMethod = s
		}
		if s, ok := n["proofPurpose"].(string); ok {
			p.ProofPurpose = s
		}
		if s, ok := n["created"].(string); ok {
			p.Created = s
		}
		if s, ok := n["domain"].(string); ok {
			p.Domain = s
		}
		if s, ok := n["challenge"].(string); ok {
			p.Challenge = s
		}
		if s, ok := n["proofValue"].(string); ok {
			p.ProofValue = s
		}
		if s, ok := n["jws"].(string); ok {
			p.JWS = s
		}
		proofs = append(proofs, p)
	}

	withoutProof := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "proof" {
			continue
		}
		withoutProof[k] = v
	}

	return withoutProof, proofs, nil
}

// proofConfig builds the canonicalizable "proof options" document per the
// Data Integrity spec: the proof node itself, minus proofValue/jws, with the
// document's @context carried over so the canonicalizer can resolve terms.
func proofConfig(docContext any, p *Proof) map[string]any {
	cfg := make(map[string]any, len(p.raw))
	for k, v := range p.raw {
		if k == "proofValue" || k == "jws" {
			continue
		}
		cfg[k] = v
	}
	if _, ok := cfg["@context"]; !ok && docContext != nil {
		cfg["@context"] = docContext
	}
	return cfg
}
