package analyzer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// exifTags is the small set of IFD0 tags a forensic analyst cares about:
// device identity and capture time. This is not a general-purpose EXIF
// library — no dependency in the reference corpus supplies one
// (SPEC_FULL.md §6.2 stdlib-only concerns) — just enough of the TIFF/IFD
// structure to pull these fields out of a JPEG's APP1 segment.
var exifTags = map[uint16]string{
	0x010F: "make",
	0x0110: "model",
	0x0112: "orientation",
	0x0132: "datetime",
	0x8825: "gps_ifd_present",
}

// ExtractEXIF scans a JPEG byte stream for an APP1 "Exif\0\0" segment and
// decodes IFD0. Returns an empty, non-nil map (not an error) when no EXIF
// segment is present — most screenshots and many re-saved images carry
// none, and that is not a failure (§4.7: EXIF extraction "if present").
func ExtractEXIF(data []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return out, nil // not a JPEG; no EXIF to extract
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			break
		}
		marker := data[pos+1]
		if marker == 0xD8 || marker == 0xD9 {
			pos += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		segStart := pos + 4
		segEnd := pos + 2 + segLen
		if segEnd > len(data) {
			break
		}

		if marker == 0xE1 && bytes.HasPrefix(data[segStart:segEnd], []byte("Exif\x00\x00")) {
			return decodeTIFF(data[segStart+6 : segEnd])
		}
		if marker == 0xDA { // start of scan: no more APPn segments follow
			break
		}
		pos = segEnd
	}
	return out, nil
}

func decodeTIFF(tiff []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(tiff) < 8 {
		return out, nil
	}

	var order binary.ByteOrder
	switch string(tiff[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return out, fmt.Errorf("unrecognized TIFF byte order")
	}

	ifdOffset := order.Uint32(tiff[4:8])
	if int(ifdOffset)+2 > len(tiff) {
		return out, nil
	}

	numEntries := order.Uint16(tiff[ifdOffset : ifdOffset+2])
	entryStart := int(ifdOffset) + 2
	for i := 0; i < int(numEntries); i++ {
		off := entryStart + i*12
		if off+12 > len(tiff) {
			break
		}
		tagID := order.Uint16(tiff[off : off+2])
		fieldType := order.Uint16(tiff[off+2 : off+4])
		count := order.Uint32(tiff[off+4 : off+8])
		valueOff := off + 8

		name, known := exifTags[tagID]
		if !known {
			continue
		}

		switch fieldType {
		case 2: // ASCII
			if count <= 4 {
				out[name] = trimNul(tiff[valueOff : valueOff+int(count)])
			} else {
				start := order.Uint32(tiff[valueOff : valueOff+4])
				if int(start)+int(count) <= len(tiff) {
					out[name] = trimNul(tiff[start : start+count])
				}
			}
		case 3: // SHORT
			out[name] = fmt.Sprintf("%d", order.Uint16(tiff[valueOff:valueOff+2]))
		case 4: // LONG
			out[name] = fmt.Sprintf("%d", order.Uint32(tiff[valueOff:valueOff+4]))
		default:
			out[name] = "present"
		}
	}

	if dt, ok := out["datetime"]; ok {
		if _, err := time.Parse("2006:01:02 15:04:05", dt); err != nil {
			delete(out, "datetime") // malformed — omit rather than surface garbage
		}
	}
	return out, nil
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
