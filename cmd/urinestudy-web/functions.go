package main

import (
	"math/rand"
	"mime"
	"path/filepath"
	"strings"
)

// RandHeteroglyphs produces a string of n symbols which do
// not look like one another. (Derived to be the opposite of
// homoglyphs, which are symbols which look similar to one
// another and cannot be quickly distinguished.)
func RandHeteroglyphs(n int) string {
	var letters = []rune("abcdefghkmnpqrstwxyz")
	lenLetters := len(letters)
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(lenLetters)]
	}
	return string(b)
}

// attachment builds a Content-Disposition header that offers name as a
// download named after the uploaded file.
func attachment(upload, name string) string {
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	if base == "" || base == "." {
		base = "study"
	}

	return mime.FormatMediaType("attachment", map[string]string{"filename": base + "_" + name})
}
