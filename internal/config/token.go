package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// LoadToken reads the bearer token from the dotenv credential file. A missing
// file, missing key or empty value is a configuration error.
func (c *Config) LoadToken() (string, error) {
	path := c.TokenPath()
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.ConfigError("credential file not found").
				WithContext("path", path).
				Build()
		}
		return "", errors.WrapError(err, errors.CategoryConfig, "failed to read credential file").
			Fatal().
			WithContext("path", path).
			Build()
	}

	token := strings.TrimSpace(values[c.Confluence.TokenKey])
	if token == "" {
		return "", errors.ConfigError("token not found in credential file").
			WithContext("path", path).
			WithContext("key", c.Confluence.TokenKey).
			Build()
	}
	return token, nil
}
