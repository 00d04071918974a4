package generate

import (
	"math/rand"
	"time"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomBytes returns n bytes drawn from the given source.
func RandomBytes(src rand.Source, n int) []byte {
	var (
		r  = rand.New(src)
		bs = make([]byte, n)
	)

	for i := range bs {
		bs[i] = byte(r.Intn(256))
	}

	return bs
}

// RandomString returns an alphanumeric string of length n.
func RandomString(n int) string {
	var (
		r  = rand.New(rand.NewSource(time.Now().UnixNano()))
		bs = make([]byte, n)
	)

	for i := range bs {
		bs[i] = charset[r.Intn(len(charset))]
	}

	return string(bs)
}
