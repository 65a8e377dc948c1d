package stream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"hash"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// WinZip AE-1/AE-2 constants.
const (
	AESEncryptionMode128 = 0x01
	AESEncryptionMode192 = 0x02
	AESEncryptionMode256 = 0x03

	aesKDFIterations = 1000
	aesVerifierSize  = 2
	aesAuthCodeSize  = 10
	aesBlockSize     = 16
)

// AESStream implements the WinZip AES scheme: a salt and password verifier
// up front, AES-CTR over the payload with a little-endian counter starting at
// one, and a truncated HMAC-SHA1 over the ciphertext as the trailer.
type AESStream struct {
	base       Stream
	mode       int
	password   string
	strength   int // AESEncryptionMode*
	block      cipher.Block
	mac        hash.Hash
	counter    [aesBlockSize]byte
	keystream  [aesBlockSize]byte
	ksPos      int
	totalIn    int64
	totalOut   int64
	maxTotalIn int64
	payloadIn  int64
	footerRead bool
	scratch    []byte
}

func NewAESStream() *AESStream {
	return &AESStream{strength: AESEncryptionMode256}
}

func (a *AESStream) SetBase(base Stream) { a.base = base }

func (a *AESStream) SetPassword(password string) { a.password = password }

// SetEncryptionMode selects the AES strength (mode 1/2/3 for 128/192/256-bit
// keys), which also fixes the salt length.
func (a *AESStream) SetEncryptionMode(mode int) { a.strength = mode }

func (a *AESStream) saltSize() int { return 4 + 4*a.strength }
func (a *AESStream) keySize() int  { return 8 + 8*a.strength }

func (a *AESStream) headerSize() int64 {
	return int64(a.saltSize() + aesVerifierSize)
}

func (a *AESStream) Open(mode int) error {
	if a.strength < AESEncryptionMode128 || a.strength > AESEncryptionMode256 {
		return errors.New("aes: invalid encryption mode")
	}
	a.mode = mode
	a.totalIn = 0
	a.totalOut = 0
	a.payloadIn = 0
	a.footerRead = false
	a.ksPos = aesBlockSize
	for i := range a.counter {
		a.counter[i] = 0
	}

	salt := make([]byte, a.saltSize())
	if mode&ModeWrite != 0 {
		if _, err := rand.Read(salt); err != nil {
			return errors.Wrap(err, "aes")
		}
		verifier, err := a.deriveKeys(salt)
		if err != nil {
			return err
		}
		if err := WriteFull(a.base, salt); err != nil {
			return err
		}
		if err := WriteFull(a.base, verifier); err != nil {
			return err
		}
		a.totalOut += a.headerSize()
		return nil
	}

	if err := ReadFull(a.base, salt); err != nil {
		return err
	}
	stored := make([]byte, aesVerifierSize)
	if err := ReadFull(a.base, stored); err != nil {
		return err
	}
	a.totalIn += a.headerSize()
	verifier, err := a.deriveKeys(salt)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(verifier, stored) != 1 {
		return ErrVerify
	}
	return nil
}

func (a *AESStream) deriveKeys(salt []byte) ([]byte, error) {
	keySize := a.keySize()
	derived := pbkdf2.Key([]byte(a.password), salt, aesKDFIterations, 2*keySize+aesVerifierSize, sha1.New)
	block, err := aes.NewCipher(derived[:keySize])
	if err != nil {
		return nil, errors.Wrap(err, "aes")
	}
	a.block = block
	a.mac = hmac.New(sha1.New, derived[keySize:2*keySize])
	return derived[2*keySize:], nil
}

// nextKeystream advances the little-endian counter and refills the keystream
// block.
func (a *AESStream) nextKeystream() {
	for i := 0; i < aesBlockSize; i++ {
		a.counter[i]++
		if a.counter[i] != 0 {
			break
		}
	}
	a.block.Encrypt(a.keystream[:], a.counter[:])
	a.ksPos = 0
}

func (a *AESStream) xorKeystream(p []byte) {
	for i := range p {
		if a.ksPos == aesBlockSize {
			a.nextKeystream()
		}
		p[i] ^= a.keystream[a.ksPos]
		a.ksPos++
	}
}

func (a *AESStream) payloadMax() int64 {
	if a.maxTotalIn <= 0 {
		return -1
	}
	return a.maxTotalIn - a.headerSize() - aesAuthCodeSize
}

func (a *AESStream) Read(p []byte) (int, error) {
	if max := a.payloadMax(); max >= 0 {
		remaining := max - a.payloadIn
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := a.base.Read(p)
	if n > 0 {
		a.mac.Write(p[:n])
		a.xorKeystream(p[:n])
		a.payloadIn += int64(n)
		a.totalIn += int64(n)
	}
	return n, err
}

func (a *AESStream) Write(p []byte) (int, error) {
	if cap(a.scratch) < len(p) {
		a.scratch = make([]byte, len(p))
	}
	buf := a.scratch[:len(p)]
	copy(buf, p)
	a.xorKeystream(buf)
	a.mac.Write(buf)
	n, err := a.base.Write(buf)
	a.totalOut += int64(n)
	return n, err
}

func (a *AESStream) Close() error {
	if a.mode&ModeWrite != 0 {
		auth := a.mac.Sum(nil)[:aesAuthCodeSize]
		if err := WriteFull(a.base, auth); err != nil {
			return err
		}
		a.totalOut += aesAuthCodeSize
		return nil
	}

	// Authenticate only once the whole payload has been drained.
	if max := a.payloadMax(); max >= 0 && a.payloadIn == max && !a.footerRead {
		stored := make([]byte, aesAuthCodeSize)
		if err := ReadFull(a.base, stored); err != nil {
			return err
		}
		a.footerRead = true
		a.totalIn += aesAuthCodeSize
		computed := a.mac.Sum(nil)[:aesAuthCodeSize]
		if subtle.ConstantTimeCompare(computed, stored) != 1 {
			return ErrVerify
		}
	}
	return nil
}

func (a *AESStream) Seek(offset int64, whence int) (int64, error) {
	return a.base.Seek(offset, whence)
}

func (a *AESStream) Tell() int64 { return a.base.Tell() }

func (a *AESStream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return a.totalIn, nil
	case PropTotalOut:
		return a.totalOut, nil
	case PropTotalInMax:
		return a.maxTotalIn, nil
	case PropHeaderSize:
		return a.headerSize(), nil
	case PropFooterSize:
		return aesAuthCodeSize, nil
	}
	return 0, ErrProp
}

func (a *AESStream) SetProp(p Prop, v int64) error {
	switch p {
	case PropTotalInMax:
		a.maxTotalIn = v
		return nil
	}
	return ErrProp
}
