package helpers

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// Verification codes are four-digit numbers in [VerificationCodeMin, VerificationCodeMax].
const (
	VerificationCodeMin = 1000
	VerificationCodeMax = 9999
)

var codeSpan = big.NewInt(VerificationCodeMax - VerificationCodeMin + 1)

// GenVerificationCode draws a code uniformly from the four-digit range using crypto/rand.
func GenVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+VerificationCodeMin, 10), nil
}
