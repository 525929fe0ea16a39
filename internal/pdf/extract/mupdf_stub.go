//go:build !cgo || nofitz

package extract

// MuPDF needs cgo; without it the method is simply not offered.
func newMuPDF(Config) Extractor { return nil }
