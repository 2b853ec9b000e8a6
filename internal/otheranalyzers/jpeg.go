package otheranalyzers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"strings"
)

// exifOrientationTag is the Exif TIFF tag holding a JPEG's rotation
// metadata (1 = normal, 3 = 180°, 6 = 90° CW, 8 = 90° CCW, etc.).
const exifOrientationTag = 0x0112

// AnalyzeJPEG decodes a JPEG's pixel dimensions via image/jpeg and
// scans its APP1 segment for an Exif orientation tag, per SPEC_FULL.md
// §4.9. No third-party JPEG/Exif library exists anywhere in the
// retrieved pack (see DESIGN.md), so this analyzer is stdlib-only.
func AnalyzeJPEG(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return errorRecord("image/jpeg", err.Error())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return errorRecord("image/jpeg", err.Error())
	}

	h := Header{}
	orientation, ok := exifOrientation(data)

	var sb strings.Builder
	sb.WriteString("<fileanalysis>\n<meta>\n")
	sb.WriteString(fileformatXML("image/jpeg"))
	sb.WriteString(fmt.Sprintf("<dimensions width=\"%d\" height=\"%d\"", cfg.Width, cfg.Height))
	if ok {
		sb.WriteString(fmt.Sprintf(" orientation=\"%d\"", orientation))
	}
	sb.WriteString(" />\n")
	sb.WriteString(h.ToXML())
	sb.WriteString("</meta>\n</fileanalysis>\n")
	return sb.String()
}

// exifOrientation scans a JPEG's APP1 (0xFFE1) segment for an "Exif\0\0"
// header followed by a TIFF structure and returns the value of tag
// 0x0112 (Orientation) from the 0th IFD, if present.
func exifOrientation(data []byte) (uint16, bool) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return 0, false
	}

	offset := 2
	for offset+4 <= len(data) {
		if data[offset] != 0xff {
			break
		}
		marker := data[offset+1]
		if marker == 0xd9 || marker == 0xda {
			break // EOI or start-of-scan: no more metadata segments follow
		}
		segLen := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		segStart := offset + 4
		segEnd := offset + 2 + segLen
		if segEnd > len(data) || segLen < 2 {
			break
		}

		if marker == 0xe1 && segEnd-segStart >= 8 && bytes.HasPrefix(data[segStart:], []byte("Exif\x00\x00")) {
			if v, ok := parseTIFFOrientation(data[segStart+6 : segEnd]); ok {
				return v, true
			}
		}
		offset = segEnd
	}
	return 0, false
}

func parseTIFFOrientation(tiff []byte) (uint16, bool) {
	if len(tiff) < 8 {
		return 0, false
	}

	var bo binary.ByteOrder
	switch string(tiff[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return 0, false
	}

	ifdOffset := bo.Uint32(tiff[4:8])
	if int(ifdOffset)+2 > len(tiff) {
		return 0, false
	}

	numEntries := bo.Uint16(tiff[ifdOffset : ifdOffset+2])
	entryStart := int(ifdOffset) + 2
	for i := 0; i < int(numEntries); i++ {
		entryOff := entryStart + i*12
		if entryOff+12 > len(tiff) {
			break
		}
		tag := bo.Uint16(tiff[entryOff : entryOff+2])
		if tag == exifOrientationTag {
			// SHORT value is stored in the first 2 bytes of the 4-byte
			// value field regardless of byte order's effect on padding.
			valOff := entryOff + 8
			return bo.Uint16(tiff[valOff : valOff+2]), true
		}
	}
	return 0, false
}
