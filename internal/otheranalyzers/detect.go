package otheranalyzers

import "bytes"

var (
	zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}
	cfbMagic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

// Kind identifies which of this package's analyzers a file belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindZIPContainer // a ZIP not otherwise recognized as OpenXML/ODF
	KindOpenXML
	KindODF
	KindJPEG
	KindLegacyOffice
)

// Detect sniffs head (the file's first bytes — a few hundred is plenty)
// and returns the Kind best matching it. OpenXML and ODF are both ZIP
// containers distinguished only by their internal entries, so Detect
// alone cannot tell them apart from a ZIP; callers that need that
// distinction call IsODF and IsOpenXML against the opened archive.
func Detect(head []byte) Kind {
	switch {
	case bytes.HasPrefix(head, cfbMagic):
		return KindLegacyOffice
	case bytes.HasPrefix(head, jpegMagic):
		return KindJPEG
	case bytes.HasPrefix(head, zipMagic):
		return KindZIPContainer
	default:
		return KindUnknown
	}
}
