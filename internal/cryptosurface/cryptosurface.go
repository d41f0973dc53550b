// Package cryptosurface wraps the cryptographic primitives the token
// builder and verifier sign and check payloads with: digest
// construction, RSA/DSA sign and verify over a caller-supplied byte
// range, Base64 encode/decode with optional line-wrapping, and SHA-1
// public-key fingerprinting. These primitives are "ordinary
// engineering" — ground truth is `uitsOpenSSL.c` — and every one of
// them is Go standard library because no third-party RSA/DSA/Base64
// library exists anywhere in the retrieved reference pack.
package cryptosurface

import (
	"bufio"
	"crypto"
	"crypto/dsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"hash"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/protocol7/uits-go/internal/errs"
)

// Algorithm names the two signature schemes uits tokens support.
type Algorithm string

const (
	RSA2048 Algorithm = "RSA2048"
	DSA2048 Algorithm = "DSA2048"
)

// DigestHash returns the crypto.Hash paired with algorithm:
// RSA2048 signs a SHA-256 digest, DSA2048 signs a SHA-224 digest.
func DigestHash(algorithm Algorithm) (crypto.Hash, error) {
	switch algorithm {
	case RSA2048:
		return crypto.SHA256, nil
	case DSA2048:
		return crypto.SHA224, nil
	default:
		return 0, errs.New(errs.SSL, "cryptosurface.DigestHash", fmt.Sprintf("unknown algorithm %q", algorithm))
	}
}

func newHasher(h crypto.Hash) hash.Hash {
	if h == crypto.SHA256 {
		return sha256.New()
	}
	return h.New()
}

// Digest hashes data in memory with the digest paired to algorithm.
func Digest(data []byte, algorithm Algorithm) ([]byte, error) {
	h, err := DigestHash(algorithm)
	if err != nil {
		return nil, err
	}
	hasher := newHasher(h)
	hasher.Write(data)
	return hasher.Sum(nil), nil
}

// DigestBuffered streams r through the digest paired to algorithm
// without holding the whole input in memory — used for media-hash
// computation over large audio regions.
func DigestBuffered(r io.Reader, algorithm Algorithm) ([]byte, error) {
	h, err := DigestHash(algorithm)
	if err != nil {
		return nil, err
	}
	hasher := newHasher(h)
	buf := bufio.NewReaderSize(r, 64*1024)
	if _, err := io.Copy(hasher, buf); err != nil {
		return nil, errs.Wrap(errs.SSL, "cryptosurface.DigestBuffered", err)
	}
	return hasher.Sum(nil), nil
}

// Sign signs data (the exact metadata byte range, never a re-serialized
// copy) with priv using algorithm, returning the raw binary signature.
func Sign(priv crypto.PrivateKey, algorithm Algorithm, data []byte) ([]byte, error) {
	digestHash, err := DigestHash(algorithm)
	if err != nil {
		return nil, err
	}
	digest, err := Digest(data, algorithm)
	if err != nil {
		return nil, err
	}

	switch algorithm {
	case RSA2048:
		key, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errs.New(errs.SSL, "cryptosurface.Sign", "private key is not an RSA key")
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, digestHash, digest)
		if err != nil {
			return nil, errs.Wrap(errs.SSL, "cryptosurface.Sign", err)
		}
		return sig, nil
	case DSA2048:
		key, ok := priv.(*dsa.PrivateKey)
		if !ok {
			return nil, errs.New(errs.SSL, "cryptosurface.Sign", "private key is not a DSA key")
		}
		r, s, err := dsa.Sign(rand.Reader, key, digest)
		if err != nil {
			return nil, errs.Wrap(errs.SSL, "cryptosurface.Sign", err)
		}
		return asn1.Marshal(dsaSignature{R: r, S: s})
	default:
		return nil, errs.New(errs.SSL, "cryptosurface.Sign", fmt.Sprintf("unknown algorithm %q", algorithm))
	}
}

// Verify checks sig against data under pub using algorithm.
func Verify(pub crypto.PublicKey, algorithm Algorithm, data, sig []byte) error {
	digestHash, err := DigestHash(algorithm)
	if err != nil {
		return err
	}
	digest, err := Digest(data, algorithm)
	if err != nil {
		return err
	}

	switch algorithm {
	case RSA2048:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return errs.New(errs.SSL, "cryptosurface.Verify", "public key is not an RSA key")
		}
		if err := rsa.VerifyPKCS1v15(key, digestHash, digest, sig); err != nil {
			return errs.Wrap(errs.Signature, "cryptosurface.Verify", err)
		}
		return nil
	case DSA2048:
		key, ok := pub.(*dsa.PublicKey)
		if !ok {
			return errs.New(errs.SSL, "cryptosurface.Verify", "public key is not a DSA key")
		}
		var parsed dsaSignature
		if _, err := asn1.Unmarshal(sig, &parsed); err != nil {
			return errs.Wrap(errs.Signature, "cryptosurface.Verify", err)
		}
		if !dsa.Verify(key, digest, parsed.R, parsed.S) {
			return errs.New(errs.Signature, "cryptosurface.Verify", "DSA signature mismatch")
		}
		return nil
	default:
		return errs.New(errs.SSL, "cryptosurface.Verify", fmt.Sprintf("unknown algorithm %q", algorithm))
	}
}

type dsaSignature struct {
	R, S *big.Int
}

// Base64Encode encodes data. When multiline is true the output is
// wrapped at 64 characters per MIME convention (the builder's "ml"
// option); otherwise it is emitted on a single line.
func Base64Encode(data []byte, multiline bool) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if !multiline {
		return encoded
	}
	var b strings.Builder
	for i := 0; i < len(encoded); i += 64 {
		end := i + 64
		if end > len(encoded) {
			end = len(encoded)
		}
		b.WriteString(encoded[i:end])
		b.WriteByte('\n')
	}
	return b.String()
}

// Base64Decode decodes s, auto-detecting whether it was wrapped with
// newlines (the stored signature's own line pattern is authoritative
// on verify, never a CLI flag — see DESIGN.md's note on Base64
// line-wrapping on verify).
func Base64Decode(s string) ([]byte, error) {
	cleaned := strings.ReplaceAll(s, "\n", "")
	cleaned = strings.ReplaceAll(cleaned, "\r", "")
	cleaned = strings.TrimSpace(cleaned)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, errs.Wrap(errs.SSL, "cryptosurface.Base64Decode", err)
	}
	return decoded, nil
}

// SHA1Fingerprint returns the lowercase hex SHA-1 digest of a DER-encoded
// public key — a separate, caller-invoked operation, never auto-attached
// to a signature.
func SHA1Fingerprint(derBytes []byte) string {
	sum := sha1.Sum(derBytes)
	return fmt.Sprintf("%x", sum)
}

// PublicKeyDER reads a PEM-encoded public key file and returns its raw
// DER bytes, independent of whether the key is RSA or DSA. The `key`
// command uses this directly with SHA1Fingerprint: the key ID is a
// hash of the encoded key, not a property of one key family.
func PublicKeyDER(path string) ([]byte, error) {
	return pemBlockBytes(path)
}

// LoadRSAPublicKey reads a PEM-encoded RSA public key from path.
func LoadRSAPublicKey(path string) (*rsa.PublicKey, []byte, error) {
	der, err := pemBlockBytes(path)
	if err != nil {
		return nil, nil, err
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, nil, errs.Wrap(errs.SSL, "cryptosurface.LoadRSAPublicKey", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, nil, errs.New(errs.SSL, "cryptosurface.LoadRSAPublicKey", "key is not RSA")
	}
	return rsaPub, der, nil
}

// LoadRSAPrivateKey reads a PEM-encoded PKCS#1 or PKCS#8 RSA private key.
func LoadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	der, err := pemBlockBytes(path)
	if err != nil {
		return nil, err
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errs.Wrap(errs.SSL, "cryptosurface.LoadRSAPrivateKey", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errs.New(errs.SSL, "cryptosurface.LoadRSAPrivateKey", "key is not RSA")
	}
	return rsaKey, nil
}

// LoadDSAPublicKey reads a PEM-encoded DSA public key.
func LoadDSAPublicKey(path string) (*dsa.PublicKey, []byte, error) {
	der, err := pemBlockBytes(path)
	if err != nil {
		return nil, nil, err
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, nil, errs.Wrap(errs.SSL, "cryptosurface.LoadDSAPublicKey", err)
	}
	dsaPub, ok := pub.(*dsa.PublicKey)
	if !ok {
		return nil, nil, errs.New(errs.SSL, "cryptosurface.LoadDSAPublicKey", "key is not DSA")
	}
	return dsaPub, der, nil
}

// LoadDSAPrivateKey reads a PEM-encoded PKCS#8 DSA private key.
func LoadDSAPrivateKey(path string) (*dsa.PrivateKey, error) {
	der, err := pemBlockBytes(path)
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errs.Wrap(errs.SSL, "cryptosurface.LoadDSAPrivateKey", err)
	}
	dsaKey, ok := parsed.(*dsa.PrivateKey)
	if !ok {
		return nil, errs.New(errs.SSL, "cryptosurface.LoadDSAPrivateKey", "key is not DSA")
	}
	return dsaKey, nil
}

// LoadPrivateKey reads a PEM-encoded private key under algorithm,
// dispatching to the RSA or DSA loader as appropriate.
func LoadPrivateKey(path string, algorithm Algorithm) (crypto.PrivateKey, error) {
	switch algorithm {
	case RSA2048:
		return LoadRSAPrivateKey(path)
	case DSA2048:
		return LoadDSAPrivateKey(path)
	default:
		return nil, errs.New(errs.SSL, "cryptosurface.LoadPrivateKey", fmt.Sprintf("unknown algorithm %q", algorithm))
	}
}

// LoadPublicKey reads a PEM-encoded public key under algorithm,
// dispatching to the RSA or DSA loader as appropriate.
func LoadPublicKey(path string, algorithm Algorithm) (crypto.PublicKey, error) {
	switch algorithm {
	case RSA2048:
		key, _, err := LoadRSAPublicKey(path)
		return key, err
	case DSA2048:
		key, _, err := LoadDSAPublicKey(path)
		return key, err
	default:
		return nil, errs.New(errs.SSL, "cryptosurface.LoadPublicKey", fmt.Sprintf("unknown algorithm %q", algorithm))
	}
}

func pemBlockBytes(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.File, "cryptosurface.pemBlockBytes", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errs.New(errs.SSL, "cryptosurface.pemBlockBytes", fmt.Sprintf("%s is not PEM-encoded", path))
	}
	return block.Bytes, nil
}

// GenerateKeyPair creates a fresh private/public key pair for
// algorithm. orchestrator.GenerateKeyPair, behind the `keygen`
// subcommand, is the only caller; everyday
// create/verify operations load existing keys from disk.
func GenerateKeyPair(algorithm Algorithm) (crypto.PrivateKey, crypto.PublicKey, error) {
	switch algorithm {
	case RSA2048:
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, nil, errs.Wrap(errs.SSL, "cryptosurface.GenerateKeyPair", err)
		}
		return key, &key.PublicKey, nil
	case DSA2048:
		var params dsa.Parameters
		if err := dsa.GenerateParameters(&params, rand.Reader, dsa.L2048N224); err != nil {
			return nil, nil, errs.Wrap(errs.SSL, "cryptosurface.GenerateKeyPair", err)
		}
		var priv dsa.PrivateKey
		priv.Parameters = params
		if err := dsa.GenerateKey(&priv, rand.Reader); err != nil {
			return nil, nil, errs.Wrap(errs.SSL, "cryptosurface.GenerateKeyPair", err)
		}
		return &priv, &priv.PublicKey, nil
	default:
		return nil, nil, errs.New(errs.SSL, "cryptosurface.GenerateKeyPair", fmt.Sprintf("unknown algorithm %q", algorithm))
	}
}

// SavePrivateKeyPEM writes priv to path as a PKCS#8 PEM file.
func SavePrivateKeyPEM(path string, priv crypto.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return errs.Wrap(errs.SSL, "cryptosurface.SavePrivateKeyPEM", err)
	}
	return writePEMFile(path, "PRIVATE KEY", der)
}

// SavePublicKeyPEM writes pub to path as a PKIX PEM file.
func SavePublicKeyPEM(path string, pub crypto.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return errs.Wrap(errs.SSL, "cryptosurface.SavePublicKeyPEM", err)
	}
	return writePEMFile(path, "PUBLIC KEY", der)
}

func writePEMFile(path, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.Wrap(errs.File, "cryptosurface.writePEMFile", err)
	}
	defer f.Close()
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return errs.Wrap(errs.File, "cryptosurface.writePEMFile", err)
	}
	return nil
}
