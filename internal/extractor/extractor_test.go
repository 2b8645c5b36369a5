package extractor

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDirectURIs(t *testing.T) {
	text := `some prose
vless://uuid@h.example:443?type=ws#a
noise trojan://pw@h.example:443#b trailing
vless://uuid@h.example:443?type=ws#a
`
	got := New(256 << 10).Extract(text)
	assert.ElementsMatch(t, []string{
		"vless://uuid@h.example:443?type=ws#a",
		"trojan://pw@h.example:443#b",
	}, got)
}

func TestExtractBase64Wrapped(t *testing.T) {
	inner := "vmess://abc123\ntrojan://pw@h.example:443#x"
	text := "header line\n" + base64.StdEncoding.EncodeToString([]byte(inner)) + "\n"

	got := New(256 << 10).Extract(text)
	assert.Contains(t, got, "vmess://abc123")
	assert.Contains(t, got, "trojan://pw@h.example:443#x")
}

func TestExtractOversizedBase64Skipped(t *testing.T) {
	inner := "trojan://pw@h.example:443#x"
	encoded := base64.StdEncoding.EncodeToString([]byte(inner))

	got := New(10).Extract(encoded)
	assert.Empty(t, got)
}

func TestExtractGarbageBase64Silent(t *testing.T) {
	assert.Empty(t, New(256<<10).Extract("AAAA====BBBB\nnot-base64-at-all!!\n"))
}

func TestExtractDoesNotMatchInsideWords(t *testing.T) {
	got := New(256<<10).Extract("wss://h.example:443/path and https://h.example/page")
	assert.Empty(t, got)
}

func TestExtractAliases(t *testing.T) {
	got := New(256 << 10).Extract("hy2://pw@h.example:443\nwg://key@1.2.3.4:51820\nnaive+https://u:p@h.example:443")
	assert.Len(t, got, 3)
}

func TestDecodeBase64Variants(t *testing.T) {
	plain := "method:password@host:8388"

	for _, enc := range []string{
		base64.StdEncoding.EncodeToString([]byte(plain)),
		base64.RawStdEncoding.EncodeToString([]byte(plain)),
		base64.URLEncoding.EncodeToString([]byte(plain)),
		base64.RawURLEncoding.EncodeToString([]byte(plain)),
	} {
		got, ok := DecodeBase64(enc)
		assert.True(t, ok, enc)
		assert.Equal(t, plain, got)
	}

	_, ok := DecodeBase64("!!not base64!!")
	assert.False(t, ok)
}

func TestExtractHugeSingleLineStillBounded(t *testing.T) {
	huge := strings.Repeat("QUFB", 100_000) // ~400 KB of valid base64
	got := New(256 << 10).Extract(huge)
	assert.Empty(t, got)
}
