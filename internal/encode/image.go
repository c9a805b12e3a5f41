package encode

import "encoding/base64"

// Image encodes a raster payload as standard base64.
func Image(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeImage reverses Image.
func DecodeImage(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
