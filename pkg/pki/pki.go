package pki

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

func ParseX509CertificateFromFile(path string) (*x509.Certificate, []*x509.Certificate, error) {
	pemData, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}

	block, rest := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, nil, errors.New("certificate decoding error")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, err
	}

	storage := map[int]*x509.Certificate{}
	if len(rest) > 0 {
		if err := parseChain(rest, 0, storage); err != nil {
			return nil, nil, err
		}
	}

	chain := []*x509.Certificate{}
	chain = append(chain, cert)
	for _, v := range storage {
		chain = append(chain, v)
	}

	return cert, chain, nil
}

func parseChain(rest []byte, n int, storage map[int]*x509.Certificate) error {
	n++
	block, r := pem.Decode(rest)
	if block == nil {
		return nil
	}

	if block.Type != "CERTIFICATE" {
		return errors.New("certificate type error")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return err
	}

	storage[n] = cert

	if len(r) > 0 {
		if err := parseChain(r, n, storage); err != nil {
			return err
		}
	}

	return nil
}

func ParseKeyFromFile(path string) (any, error) {
	pemData, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	block, rest := pem.Decode([]byte(pemData))
	if block == nil || len(rest) > 0 {
		return nil, errors.New("failed to decode PEM block from file")
	}

	// Support multiple key formats
	switch block.Type {
	case "PRIVATE KEY":
		// PKCS#8 format
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 private key: %w", err)
		}
		return key, nil

	case "EC PRIVATE KEY":
		// SEC1/EC format
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC private key: %w", err)
		}
		return key, nil

	case "RSA PRIVATE KEY":
		// PKCS#1 RSA format
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}

// ParseX5CChain decodes the x5c header of a Request Object or credential
// JWS into an ordered, leaf-first certificate chain. Per RFC 7515 §4.1.6,
// each element is standard (padded) base64, not base64url — unlike every
// other JWS component.
func ParseX5CChain(x5c []string) ([]*x509.Certificate, error) {
	if len(x5c) == 0 {
		return nil, errors.New("pki: empty x5c chain")
	}
	chain := make([]*x509.Certificate, 0, len(x5c))
	for i, entry := range x5c {
		der, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, fmt.Errorf("pki: decode x5c[%d]: %w", i, err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("pki: parse x5c[%d]: %w", i, err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

// EncodeX5CChain renders a leaf-first certificate chain as a JWS x5c
// header value, the inverse of ParseX5CChain.
func EncodeX5CChain(chain []*x509.Certificate) []string {
	x5c := make([]string, len(chain))
	for i, cert := range chain {
		x5c[i] = base64.StdEncoding.EncodeToString(cert.Raw)
	}
	return x5c
}
