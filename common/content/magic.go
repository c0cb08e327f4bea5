package content

import "bytes"

type magicSignature struct {
	prefix    []byte
	mimeType  string
	extension string
}

// magicTable lists container formats recognizable from their first bytes
var magicTable = []magicSignature{
	{prefix: []byte{0x89, 0x50, 0x4E, 0x47}, mimeType: "image/png", extension: "png"},
	{prefix: []byte{0xFF, 0xD8}, mimeType: "image/jpeg", extension: "jpg"},
	{prefix: []byte{0x47, 0x49, 0x46, 0x38}, mimeType: "image/gif", extension: "gif"},
	{prefix: []byte{0x52, 0x49, 0x46, 0x46}, mimeType: "image/webp", extension: "webp"},
}

// MatchMagic matches the leading bytes of data against the magic table
func MatchMagic(data []byte) (mimeType, extension string, ok bool) {
	for _, sig := range magicTable {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.mimeType, sig.extension, true
		}
	}
	return "", "", false
}
