package stream

import (
	"crypto/rand"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

const pkcryptHeaderSize = 12

// PKCryptStream implements the traditional PKZIP stream cipher. The 12-byte
// encryption header precedes the payload; its last byte must match the
// verifier derived from either the CRC or the DOS time (Info-ZIP variant,
// selected by the data-descriptor flag).
type PKCryptStream struct {
	base       Stream
	mode       int
	password   string
	verify1    byte
	verify2    byte
	keys       [3]uint32
	totalIn    int64
	totalOut   int64
	maxTotalIn int64
	scratch    []byte
}

func NewPKCryptStream() *PKCryptStream { return &PKCryptStream{} }

func (pk *PKCryptStream) SetBase(base Stream) { pk.base = base }

// SetPassword sets the password used to initialize the cipher keys.
func (pk *PKCryptStream) SetPassword(password string) { pk.password = password }

// SetVerify sets the two verification bytes stored at the end of the
// encryption header.
func (pk *PKCryptStream) SetVerify(v1, v2 byte) {
	pk.verify1 = v1
	pk.verify2 = v2
}

func (pk *PKCryptStream) Open(mode int) error {
	pk.mode = mode
	pk.totalIn = 0
	pk.totalOut = 0
	pk.initKeys()

	var header [pkcryptHeaderSize]byte
	if mode&ModeWrite != 0 {
		if _, err := rand.Read(header[:pkcryptHeaderSize-2]); err != nil {
			return errors.Wrap(err, "pkcrypt")
		}
		header[pkcryptHeaderSize-2] = pk.verify1
		header[pkcryptHeaderSize-1] = pk.verify2
		for i := range header {
			header[i] = pk.encryptByte(header[i])
		}
		if err := WriteFull(pk.base, header[:]); err != nil {
			return err
		}
		pk.totalOut += pkcryptHeaderSize
		return nil
	}

	if err := ReadFull(pk.base, header[:]); err != nil {
		return err
	}
	pk.totalIn += pkcryptHeaderSize
	for i := range header {
		header[i] = pk.decryptByte(header[i])
	}
	if header[pkcryptHeaderSize-1] != pk.verify2 {
		return ErrVerify
	}
	return nil
}

func (pk *PKCryptStream) Close() error { return nil }

func (pk *PKCryptStream) Read(p []byte) (int, error) {
	if pk.maxTotalIn > 0 {
		remaining := pk.maxTotalIn - pk.totalIn
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := pk.base.Read(p)
	for i := 0; i < n; i++ {
		p[i] = pk.decryptByte(p[i])
	}
	pk.totalIn += int64(n)
	return n, err
}

func (pk *PKCryptStream) Write(p []byte) (int, error) {
	if cap(pk.scratch) < len(p) {
		pk.scratch = make([]byte, len(p))
	}
	buf := pk.scratch[:len(p)]
	for i, b := range p {
		buf[i] = pk.encryptByte(b)
	}
	n, err := pk.base.Write(buf)
	pk.totalOut += int64(n)
	return n, err
}

func (pk *PKCryptStream) Seek(offset int64, whence int) (int64, error) {
	return pk.base.Seek(offset, whence)
}

func (pk *PKCryptStream) Tell() int64 { return pk.base.Tell() }

func (pk *PKCryptStream) GetProp(p Prop) (int64, error) {
	switch p {
	case PropTotalIn:
		return pk.totalIn, nil
	case PropTotalOut:
		return pk.totalOut, nil
	case PropTotalInMax:
		return pk.maxTotalIn, nil
	case PropHeaderSize:
		return pkcryptHeaderSize, nil
	case PropFooterSize:
		return 0, nil
	}
	return 0, ErrProp
}

func (pk *PKCryptStream) SetProp(p Prop, v int64) error {
	switch p {
	case PropTotalInMax:
		pk.maxTotalIn = v
		return nil
	}
	return ErrProp
}

func (pk *PKCryptStream) initKeys() {
	pk.keys = [3]uint32{0x12345678, 0x23456789, 0x34567890}
	for i := 0; i < len(pk.password); i++ {
		pk.updateKeys(pk.password[i])
	}
}

func (pk *PKCryptStream) updateKeys(c byte) {
	pk.keys[0] = crcByte(pk.keys[0], c)
	pk.keys[1] += pk.keys[0] & 0xff
	pk.keys[1] = pk.keys[1]*134775813 + 1
	pk.keys[2] = crcByte(pk.keys[2], byte(pk.keys[1]>>24))
}

func (pk *PKCryptStream) magicByte() byte {
	t := pk.keys[2] | 2
	return byte((t * (t ^ 1)) >> 8)
}

func (pk *PKCryptStream) encryptByte(b byte) byte {
	c := b ^ pk.magicByte()
	pk.updateKeys(b)
	return c
}

func (pk *PKCryptStream) decryptByte(c byte) byte {
	b := c ^ pk.magicByte()
	pk.updateKeys(b)
	return b
}

func crcByte(crc uint32, b byte) uint32 {
	return crc32.IEEETable[(crc^uint32(b))&0xff] ^ (crc >> 8)
}
