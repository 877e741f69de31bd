package reqobj

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// QRCode is a same/cross-device request URL rendered as a base64-encoded
// PNG, for Wallets that scan rather than deep-link.
type QRCode struct {
	Base64Image string `json:"base64_image"`
	URI         string `json:"uri"`
}

// GenerateQR renders uri as a QR code at the given recovery level and
// pixel size (size of 0 defaults to 256).
func GenerateQR(uri string, recoveryLevel qrcode.RecoveryLevel, size int) (*QRCode, error) {
	if size == 0 {
		size = 256
	}

	code, err := qrcode.New(uri, recoveryLevel)
	if err != nil {
		return nil, fmt.Errorf("reqobj: create qr code: %w", err)
	}

	var buf bytes.Buffer
	encoder := base64.NewEncoder(base64.StdEncoding, &buf)
	if err := png.Encode(encoder, code.Image(size)); err != nil {
		return nil, fmt.Errorf("reqobj: encode qr code: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return &QRCode{Base64Image: buf.String(), URI: uri}, nil
}
