package pix

import (
	"bytes"
	"encoding/base64"
	"log"

	"github.com/yeqown/go-qrcode"
)

// RenderBase64 encodes a BR Code payload as a QR image, base64 encoded for
// embedding straight into an API response.
func RenderBase64(payload string) (string, error) {
	qrc, err := qrcode.New(payload)
	if err != nil {
		log.Printf("[pix] Error building QR code: %s\n", err.Error())
		return "", err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		log.Printf("[pix] Error encoding QR image: %s\n", err.Error())
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
