package payment

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/gowebpki/jcs"
)

// PublicKey is an RSA public key recovered from the gateway's key envelope.
type PublicKey struct {
	N *big.Int
	E *big.Int

	size int
}

// Size returns the modulus length in bytes. Ciphertexts and encoded message
// blocks are exactly this long.
func (k *PublicKey) Size() int {
	return k.size
}

// MaxMessageLen returns the largest message EncryptBytes accepts under this
// key (PKCS#1 v1.5 consumes 11 bytes of the block).
func (k *PublicKey) MaxMessageLen() int {
	return k.size - 11
}

// ParseKeyEnvelope decodes the gateway's key envelope: a base64-encoded XML
// document whose <Modulus> and <Exponent> elements each hold a base64
// big-endian integer. The values are taken by a literal tag scan; the
// gateway emits them as exact substrings and a full XML parser would only
// add failure modes.
func ParseKeyEnvelope(encoded string) (*PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: envelope is not base64: %v", ErrInvalidKeyFormat, err)
	}

	doc := string(raw)

	modulusB64, err := tagValue(doc, "Modulus")
	if err != nil {
		return nil, err
	}
	exponentB64, err := tagValue(doc, "Exponent")
	if err != nil {
		return nil, err
	}

	modulus, err := base64.StdEncoding.DecodeString(modulusB64)
	if err != nil {
		return nil, fmt.Errorf("%w: modulus is not base64: %v", ErrInvalidKeyFormat, err)
	}
	exponent, err := base64.StdEncoding.DecodeString(exponentB64)
	if err != nil {
		return nil, fmt.Errorf("%w: exponent is not base64: %v", ErrInvalidKeyFormat, err)
	}

	n := new(big.Int).SetBytes(modulus)
	e := new(big.Int).SetBytes(exponent)
	if n.Sign() == 0 || e.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero modulus or exponent", ErrInvalidKeyFormat)
	}

	// Size comes from the modulus value, not the encoded byte count: some
	// emitters prepend a 0x00 sign byte to the modulus, and counting it
	// would shift the message bound and pad ciphertexts one byte long.
	return &PublicKey{N: n, E: e, size: (n.BitLen() + 7) / 8}, nil
}

func tagValue(doc, tag string) (string, error) {
	open := "<" + tag + ">"
	closing := "</" + tag + ">"

	start := strings.Index(doc, open)
	if start < 0 {
		return "", fmt.Errorf("%w: missing %s element", ErrInvalidKeyFormat, open)
	}
	start += len(open)

	length := strings.Index(doc[start:], closing)
	if length < 0 {
		return "", fmt.Errorf("%w: unterminated %s element", ErrInvalidKeyFormat, open)
	}

	return strings.TrimSpace(doc[start : start+length]), nil
}

// EncryptBytes RSA-encrypts msg under key with PKCS#1 v1.5 padding and
// returns the ciphertext base64-encoded. The gateway decrypts this
// independently, so the block layout and padding scheme must match
// bit-for-bit: 0x00 0x02, non-zero random padding, 0x00, message.
func EncryptBytes(msg []byte, key *PublicKey) (string, error) {
	k := key.Size()
	if len(msg) > k-11 {
		return "", fmt.Errorf("%w: message is %d bytes, key of %d bytes allows %d",
			ErrPayloadTooLarge, len(msg), k, k-11)
	}

	em := make([]byte, k)
	em[0] = 0x00
	em[1] = 0x02

	padding := em[2 : k-len(msg)-1]
	if err := fillNonZero(padding); err != nil {
		return "", fmt.Errorf("%w: padding: %v", ErrEncryptionFailed, err)
	}

	em[k-len(msg)-1] = 0x00
	copy(em[k-len(msg):], msg)

	m := new(big.Int).SetBytes(em)
	c := modExp(m, key.E, key.N)

	out := make([]byte, k)
	c.FillBytes(out)
	return base64.StdEncoding.EncodeToString(out), nil
}

// EncryptPayload serializes payload to canonical JSON (RFC 8785) and
// encrypts it under the envelope key.
func EncryptPayload(payload any, encodedKey string) (string, error) {
	key, err := ParseKeyEnvelope(encodedKey)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal payload: %v", ErrEncryptionFailed, err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("%w: canonicalize payload: %v", ErrEncryptionFailed, err)
	}

	return EncryptBytes(canonical, key)
}

// fillNonZero fills buf with uniform random bytes in [1, 255]. PKCS#1 v1.5
// uses 0x00 as the padding terminator, so a zero inside the padding string
// would truncate the message on decryption.
func fillNonZero(buf []byte) error {
	if _, err := rand.Read(buf); err != nil {
		return err
	}

	for i := range buf {
		for buf[i] == 0 {
			var b [1]byte
			if _, err := rand.Read(b[:]); err != nil {
				return err
			}
			buf[i] = b[0]
		}
	}

	return nil
}

// modExp computes base^exp mod mod by binary square-and-multiply, scanning
// the exponent from its most significant bit.
func modExp(base, exp, mod *big.Int) *big.Int {
	result := big.NewInt(1)
	b := new(big.Int).Mod(base, mod)

	for i := exp.BitLen() - 1; i >= 0; i-- {
		result.Mul(result, result).Mod(result, mod)
		if exp.Bit(i) == 1 {
			result.Mul(result, b).Mod(result, mod)
		}
	}

	return result
}
