/*
Package randx provides functions for generating cryptographically secure random
identifiers used across the portal.

It covers UUID message and row identifiers plus short Base62 reference codes
(used for student admission numbers and file keys).
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// AdmissionCodeLength is the fixed length of generated student admission codes.
	AdmissionCodeLength = 8
)

// base62String generates a Base62 string of the given length using crypto/rand.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// FileID generates a standard UUID v4 string used to build object storage keys.
func FileID() string {
	return uuid.New().String()
}

// AdmissionCode generates a Base62 encoded admission code of length AdmissionCodeLength.
func AdmissionCode() (string, error) {
	return base62String(AdmissionCodeLength)
}

// IsValidAdmissionCode checks if the given string is a valid admission code:
// length equals AdmissionCodeLength and all characters belong to the Base62Chars set.
func IsValidAdmissionCode(code string) bool {
	if len(code) != AdmissionCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
