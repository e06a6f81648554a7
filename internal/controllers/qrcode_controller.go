package controllers

import (
	"github.com/skip2/go-qrcode"

	"shortly/internal/errors"
)

// pngSize is the edge length of saved QR images in pixels
const pngSize = 256

type QRCodeController struct {
	shortURL func(code string) string
}

// NewQRCodeController builds codes for the display URL returned by shortURL
func NewQRCodeController(shortURL func(code string) string) *QRCodeController {
	return &QRCodeController{shortURL: shortURL}
}

// Render returns the QR code for a short link as terminal block characters
func (qc *QRCodeController) Render(code string) (string, error) {
	qr, err := qc.encode(code)
	if err != nil {
		return "", err
	}
	return qr.ToString(false), nil
}

// SavePNG writes the QR code for a short link to path as a PNG image
func (qc *QRCodeController) SavePNG(code, path string) error {
	qr, err := qc.encode(code)
	if err != nil {
		return err
	}
	if err := qr.WriteFile(pngSize, path); err != nil {
		return errors.Wrapf(err, "failed to write QR code image to %s", path)
	}
	return nil
}

func (qc *QRCodeController) encode(code string) (*qrcode.QRCode, error) {
	if code == "" {
		return nil, errors.NewInvalidInputError("short code is required")
	}
	qr, err := qrcode.New(qc.shortURL(code), qrcode.Medium)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate QR code")
	}
	return qr, nil
}
