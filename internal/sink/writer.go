package sink

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// Writers for the ranked result list. The pipeline hands over an ordered
// []ConfigResult and these render it; nothing here feeds back into the
// run.

// WriteText writes one raw link per line, in ranked order.
func WriteText(path string, results []model.ConfigResult) error {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, r := range results {
		if _, err := f.WriteString(r.RawURI + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSONL writes one JSON object per line with the full enrichment.
func WriteJSONL(path string, results []model.ConfigResult) error {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteYAML renders the results as a single YAML document.
func WriteYAML(path string, results []model.ConfigResult) error {
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()
	return enc.Encode(struct {
		Configs []model.ConfigResult `yaml:"configs"`
	}{Configs: results})
}
