package catalog

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/samasrinivas/kafkautomation/errors"
)

// Encode renders the catalog as the kafka-catalog.yaml artifact. Field
// order follows the struct definition and entry order is fixed by
// Aggregate, so identical catalogs encode to identical bytes.
func Encode(cat *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cat); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encoding catalog")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encoding catalog")
	}
	return buf.Bytes(), nil
}

// Decode parses a kafka-catalog.yaml artifact and checks that its declared
// format version is readable by this build.
func Decode(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedDeclaration, "parsing catalog artifact")
	}

	if cat.FormatVersion != "" {
		ok, err := IsCompatible(cat.FormatVersion)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeMalformedDeclaration, "parsing catalog artifact")
		}
		if !ok {
			return nil, errors.Newf(errors.CodeMalformedDeclaration,
				"catalog format version %q is not compatible with %q",
				cat.FormatVersion, FormatVersion)
		}
	}
	return &cat, nil
}
