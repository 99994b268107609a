package service

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// shortCodeAlphabet is the 62-symbol alphabet short codes are drawn from.
// At the default length of 6 this gives 62^6 (roughly 5.7e10) possible codes,
// so uniqueness rests on low collision probability rather than search.
const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateShortCode produces a uniformly random code of the given length.
// It is stateless; uniqueness is enforced by the store at commit time.
func generateShortCode(length int) (string, error) {
	return gonanoid.Generate(shortCodeAlphabet, length)
}
