// Package base62 converts numeric identifiers to short codes and back.
package base62

import (
	"errors"
	"math"
)

// Alphabet is the ordered symbol set: digits, lowercase, uppercase.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(Alphabet))

var (
	ErrEmpty            = errors.New("base62: empty code")
	ErrInvalidCharacter = errors.New("base62: invalid character")
	ErrOverflow         = errors.New("base62: value overflows uint64")
)

// -1 marks bytes outside the alphabet.
var charValue [256]int8

func init() {
	for i := range charValue {
		charValue[i] = -1
	}

	for i := 0; i < len(Alphabet); i++ {
		charValue[Alphabet[i]] = int8(i)
	}
}

// Encode returns the base62 representation of id. Encode(0) is "0".
func Encode(id uint64) string {
	if id == 0 {
		return Alphabet[:1]
	}

	// 11 symbols cover the full uint64 range.
	var buf [11]byte

	i := len(buf)
	for id > 0 {
		i--
		buf[i] = Alphabet[id%base]
		id /= base
	}

	return string(buf[i:])
}

// Decode is the inverse of Encode.
func Decode(code string) (uint64, error) {
	if code == "" {
		return 0, ErrEmpty
	}

	var value uint64

	for i := 0; i < len(code); i++ {
		digit := charValue[code[i]]
		if digit < 0 {
			return 0, ErrInvalidCharacter
		}

		if value > (math.MaxUint64-uint64(digit))/base {
			return 0, ErrOverflow
		}

		value = value*base + uint64(digit)
	}

	return value, nil
}
