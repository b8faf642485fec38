package redemptioncode

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	dataURLPNG  = "data:image/png;base64,"
	verifyPath  = "/verify/claim/"
)

// Code - то, что показывается покупателю при in-store claim
type Code struct {
	Image           string `json:"encoded_payload"`
	VerificationURL string `json:"verification_url"`
}

type Encoder struct {
	baseURL string
	size    int
}

func NewEncoder(baseURL string, size int) *Encoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Encoder{baseURL: strings.TrimRight(baseURL, "/"), size: size}
}

func (e *Encoder) VerificationURL(token string) string {
	return e.baseURL + verifyPath + token
}

// Encode рендерит QR-код (уровень коррекции M) со ссылкой проверки в PNG data URL.
func (e *Encoder) Encode(token string) (Code, error) {
	url := e.VerificationURL(token)
	png, err := qrcode.Encode(url, qrcode.Medium, e.size)
	if err != nil {
		return Code{}, fmt.Errorf("encode qr for %s: %w", token, err)
	}
	return Code{
		Image:           dataURLPNG + base64.StdEncoding.EncodeToString(png),
		VerificationURL: url,
	}, nil
}
