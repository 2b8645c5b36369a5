package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

func sample() []model.ConfigResult {
	return []model.ConfigResult{
		{
			ParsedConfig: model.ParsedConfig{Scheme: model.SchemeVLESS, Host: "a.example", Port: 443, RawURI: "vless://id@a.example:443", DisplayName: "first"},
			Fingerprint:  "aaaa",
			Reachable:    true,
			PingSeconds:  0.042,
		},
		{
			ParsedConfig: model.ParsedConfig{Scheme: model.SchemeTrojan, Host: "b.example", Port: 8443, RawURI: "trojan://pw@b.example:8443", DisplayName: "second"},
			Fingerprint:  "bbbb",
		},
	}
}

func TestWriteTextPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs.txt")
	require.NoError(t, WriteText(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "vless://id@a.example:443\ntrojan://pw@b.example:8443\n", string(data))
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs.jsonl")
	require.NoError(t, WriteJSONL(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"fingerprint":"aaaa"`)
	assert.Contains(t, out, `"ping_seconds":0.042`)
	assert.Contains(t, out, `"scheme":"trojan"`)
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs.yaml")
	require.NoError(t, WriteYAML(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "configs:")
	assert.Contains(t, string(data), "a.example")
}
