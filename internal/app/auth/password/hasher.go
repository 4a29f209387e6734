package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"

	// BcryptCost keeps a single hash in the tens of milliseconds.
	BcryptCost = 10
)

// ErrTooLong is returned when the chosen algorithm cannot digest the whole input.
var ErrTooLong = errors.New("password too long")

var DefaultArgonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces salted one-way digests that embed their own parameters.
type Hasher interface {
	Hash(plain string) (string, error)
	// Compare is constant-time against the digest and reports false for a
	// mismatch or a digest it cannot parse.
	Compare(plain, digest string) bool
}

// New returns a hasher that writes digests with algorithm and accepts digests
// produced by any supported algorithm, so switching PASSWORD_HASHER keeps
// existing users able to sign in.
func New(algorithm, pepper string) (Hasher, error) {
	argon := &Argon2idHasher{Pepper: pepper, Params: DefaultArgonParams}
	bc := &BcryptHasher{Pepper: pepper, Cost: BcryptCost}

	switch strings.ToLower(algorithm) {
	case "", AlgorithmArgon2id:
		return &multiHasher{primary: argon, argon: argon, bcrypt: bc}, nil
	case AlgorithmBcrypt:
		return &multiHasher{primary: bc, argon: argon, bcrypt: bc}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algorithm)
	}
}

type Argon2idHasher struct {
	Pepper string
	Params *argon2id.Params
}

func (h *Argon2idHasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain+h.Pepper, h.Params)
}

func (h *Argon2idHasher) Compare(plain, digest string) bool {
	ok, err := argon2id.ComparePasswordAndHash(plain+h.Pepper, digest)
	return err == nil && ok
}

type BcryptHasher struct {
	Pepper string
	Cost   int
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain+h.Pepper), h.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrTooLong
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain+h.Pepper)) == nil
}

type multiHasher struct {
	primary Hasher
	argon   *Argon2idHasher
	bcrypt  *BcryptHasher
}

func (m *multiHasher) Hash(plain string) (string, error) {
	return m.primary.Hash(plain)
}

func (m *multiHasher) Compare(plain, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return m.argon.Compare(plain, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return m.bcrypt.Compare(plain, digest)
	default:
		return false
	}
}
