package sourcemap

import (
	"fmt"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqShift    = 5
	vlqBaseMask = 1<<vlqShift - 1
	vlqContinue = 1 << vlqShift
)

var base64Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}

	for i := 0; i < len(base64Alphabet); i++ {
		idx[base64Alphabet[i]] = int8(i)
	}

	return idx
}()

// AppendVLQ appends the base64 VLQ encoding of value to buf.
func AppendVLQ(buf []byte, value int) []byte {
	u := value << 1
	if value < 0 {
		u = (-value << 1) | 1
	}

	for {
		digit := u & vlqBaseMask
		u >>= vlqShift

		if u > 0 {
			digit |= vlqContinue
		}

		buf = append(buf, base64Alphabet[digit])

		if u == 0 {
			return buf
		}
	}
}

// DecodeVLQ reads one VLQ value from s and returns it with the number of
// bytes consumed.
func DecodeVLQ(s string) (int, int, error) {
	var (
		result int
		shift  uint
	)

	for i := 0; i < len(s); i++ {
		digit := base64Index[s[i]]
		if digit < 0 {
			return 0, 0, fmt.Errorf("invalid base64 character %q at %d", s[i], i)
		}

		result += int(digit&vlqBaseMask) << shift
		shift += vlqShift

		if digit&vlqContinue == 0 {
			value := result >> 1
			if result&1 == 1 {
				value = -value
			}

			return value, i + 1, nil
		}
	}

	return 0, 0, fmt.Errorf("unterminated VLQ sequence %q", s)
}
