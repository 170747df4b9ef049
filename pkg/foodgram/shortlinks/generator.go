package shortlinks

import (
	"crypto/rand"
	"io"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// rejectAbove drops bytes that would bias the modulo; 248 is the largest multiple of 62 below 256
const rejectAbove = 256 - 256%len(alphabet)

// randomString returns length characters drawn uniformly from the alphabet
func randomString(r io.Reader, length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// encodeID renders id in base62
func encodeID(id uint) string {
	if id == 0 {
		return string(alphabet[0])
	}
	var buf []byte
	for id > 0 {
		buf = append(buf, alphabet[id%uint(len(alphabet))])
		id /= uint(len(alphabet))
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// candidate returns the short id to try on the given attempt.
// The first attempt ends with the base62 recipe id, left padded with random characters;
// later attempts, and ids too long to fit, are fully random.
func candidate(r io.Reader, length, attempt int, recipeID uint) (string, error) {
	if attempt == 0 {
		encoded := encodeID(recipeID)
		if len(encoded) <= length {
			pad, err := randomString(r, length-len(encoded))
			if err != nil {
				return "", err
			}
			return pad + encoded, nil
		}
	}
	return randomString(r, length)
}

func defaultCandidate(length int) func(attempt int, recipeID uint) (string, error) {
	return func(attempt int, recipeID uint) (string, error) {
		return candidate(rand.Reader, length, attempt, recipeID)
	}
}
