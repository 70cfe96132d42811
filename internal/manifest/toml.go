package manifest

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

func unmarshalTOML(data []byte, v interface{}) error {
	if err := toml.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "parsing TOML")
	}
	return nil
}

func marshalTOML(v interface{}) ([]byte, error) {
	data, err := toml.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling TOML")
	}
	return data, nil
}
