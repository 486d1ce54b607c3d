package scancode

import (
	qrcode "github.com/skip2/go-qrcode"
)

// QRGenerator renders a scan payload as a barcode image.
type QRGenerator interface {
	Generate(data string) ([]byte, error)
	GenerateWithOptions(data string, size int, level qrcode.RecoveryLevel) ([]byte, error)
}

type DefaultQRGenerator struct{}

func (g *DefaultQRGenerator) Generate(data string) ([]byte, error) {
	return qrcode.Encode(data, qrcode.Medium, 256)
}

func (g *DefaultQRGenerator) GenerateWithOptions(data string, size int, level qrcode.RecoveryLevel) ([]byte, error) {
	return qrcode.Encode(data, level, size)
}
