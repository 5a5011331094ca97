package helper

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const (
	QRSizeDefault = 300
	QRSizeMin     = 128
	QRSizeMax     = 1024
)

// GenerateQRCodePNG encodes text as a PNG QR code, size x size pixels,
// with medium (15%) error correction.
func GenerateQRCodePNG(text string, size int) ([]byte, error) {
	if size < QRSizeMin || size > QRSizeMax {
		size = QRSizeDefault
	}

	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR to PNG: %w", err)
	}
	return png, nil
}
