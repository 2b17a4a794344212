package dispatch

import (
	"encoding/binary"
	"os"
)

// exifOrientation reads the EXIF orientation tag (0x0112) from a JPEG's
// APP1 segment. Returns false for non-JPEG files, files with no EXIF block,
// or any structural surprise; inspect treats that as "no orientation".
func exifOrientation(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	// 64KB covers the JPEG header segments that can precede APP1.
	buf := make([]byte, 64*1024)
	n, _ := f.Read(buf)
	buf = buf[:n]

	if len(buf) < 4 || buf[0] != 0xFF || buf[1] != 0xD8 {
		return 0, false
	}
	offset := 2
	for offset+4 <= len(buf) {
		if buf[offset] != 0xFF {
			return 0, false
		}
		markerByte := buf[offset+1]
		segLen := int(binary.BigEndian.Uint16(buf[offset+2 : offset+4]))
		if markerByte == 0xE1 && offset+4+segLen-2 <= len(buf) {
			return parseTIFFOrientation(buf[offset+4 : offset+2+segLen])
		}
		if markerByte == 0xDA {
			// Start of scan: no APP1 before pixel data.
			return 0, false
		}
		offset += 2 + segLen
	}
	return 0, false
}

func parseTIFFOrientation(app1 []byte) (int, bool) {
	if len(app1) < 14 || string(app1[:6]) != "Exif\x00\x00" {
		return 0, false
	}
	tiff := app1[6:]

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, false
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 0, false
	}
	ifdOffset := int(order.Uint32(tiff[4:8]))
	if ifdOffset+2 > len(tiff) {
		return 0, false
	}
	entries := int(order.Uint16(tiff[ifdOffset : ifdOffset+2]))
	for i := 0; i < entries; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(tiff) {
			return 0, false
		}
		tag := order.Uint16(tiff[entry : entry+2])
		if tag != 0x0112 {
			continue
		}
		value := int(order.Uint16(tiff[entry+8 : entry+10]))
		if value >= 1 && value <= 8 {
			return value, true
		}
		return 0, false
	}
	return 0, false
}
