package lifecycle

import (
	"crypto/rand"
)

const (
	passCodeLength   = 8
	passCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 5
)

// NewPassCode returns 8 characters drawn uniformly from [A-Z0-9].
func NewPassCode() (string, error) {
	code := make([]byte, 0, passCodeLength)
	buf := make([]byte, passCodeLength*2)
	// 252 is the largest multiple of 36 below 256
	for len(code) < passCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 252 {
				continue
			}
			code = append(code, passCodeAlphabet[int(b)%len(passCodeAlphabet)])
			if len(code) == passCodeLength {
				break
			}
		}
	}
	return string(code), nil
}
