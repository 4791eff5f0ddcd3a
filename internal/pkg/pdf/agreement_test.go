package pdf

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 12))
	for x := 0; x < 40; x++ {
		img.Set(x, 6, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeSignature(t *testing.T) {
	raw := signaturePNG(t)
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeSignature(dataURL)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	tests := map[string]string{
		"wrong mime":   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw),
		"bad base64":   "data:image/png;base64,@@@",
		"not a png":    "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
		"empty string": "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSignature(in)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestRenderAgreement(t *testing.T) {
	out, err := RenderAgreement(AgreementDoc{
		School:        "Lingo School",
		AgreementID:   12,
		StudentName:   "Mina Kim",
		StudentNumber: "2503140109",
		SignerName:    "Jisoo Kim",
		TermsVersion:  "2025-01",
		SignedAt:      time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		SignaturePNG:  signaturePNG(t),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestRenderAgreementWithoutSignature(t *testing.T) {
	out, err := RenderAgreement(AgreementDoc{School: "Lingo School", SignedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
