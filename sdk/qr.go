package sdk

import qrcode "github.com/skip2/go-qrcode"

// LinkQRCode renders a link URL as a PNG QR code with the given pixel size.
// A non-positive size falls back to 256.
func LinkQRCode(link string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(link, qrcode.Medium, size)
}
