package auth

import (
	"crypto/subtle"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Digest is a stored password credential. It is either a BcryptDigest or a
// LegacyPlaintextDigest; no other variants exist.
type Digest interface {
	Verify(password string) bool
	String() string
	digest()
}

// BcryptDigest is the only format new credentials are written in.
type BcryptDigest string

func (d BcryptDigest) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(d), []byte(password)) == nil
}

func (d BcryptDigest) String() string { return string(d) }
func (BcryptDigest) digest()          {}

// LegacyPlaintextDigest is a password stored verbatim by the first version of
// the service. Logins against it are upgraded to bcrypt; remove this variant
// once no such records remain.
type LegacyPlaintextDigest string

func (d LegacyPlaintextDigest) Verify(password string) bool {
	return subtle.ConstantTimeCompare([]byte(d), []byte(password)) == 1
}

func (d LegacyPlaintextDigest) String() string { return string(d) }
func (LegacyPlaintextDigest) digest()          {}

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// ParseDigest tags a stored credential with its variant.
func ParseDigest(stored string) Digest {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return BcryptDigest(stored)
		}
	}
	return LegacyPlaintextDigest(stored)
}

func HashPassword(password string) (BcryptDigest, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return BcryptDigest(hashed), nil
}

func isLegacy(d Digest) bool {
	_, ok := d.(LegacyPlaintextDigest)
	return ok
}

var unknownUserDigest = sync.OnceValue(func() BcryptDigest {
	d, _ := HashPassword("unknown-user-placeholder")
	return d
})

// verifyUnknownUser runs a bcrypt comparison of the same cost as a real
// login, so an unregistered email answers as slowly as a wrong password.
var verifyUnknownUser = func(password string) {
	unknownUserDigest().Verify(password)
}
