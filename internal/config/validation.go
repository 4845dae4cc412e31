package config

import (
	"fmt"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// Validate checks that the configuration can drive an export.
func (c *Config) Validate() error {
	if err := c.validateConfluence(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return c.validateRetry()
}

func (c *Config) validateConfluence() error {
	base := strings.TrimSpace(c.Confluence.BaseURL)
	if base == "" {
		return invalid("confluence.base_url", "base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("confluence.base_url", fmt.Sprintf("base URL must be an absolute http(s) URL, got %q", base))
	}
	if strings.TrimSpace(c.Confluence.RootPageID) == "" {
		return invalid("confluence.root_page_id", "root page ID is required")
	}
	if c.Confluence.PageSize <= 0 {
		return invalid("confluence.page_size", "page size must be positive")
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Mode {
	case ModePerFile, ModeFlat, ModeChunked:
	default:
		return invalid("export.mode", fmt.Sprintf("unsupported mode %q", c.Export.Mode))
	}
	if c.Export.Mode == ModeChunked && c.Export.ChunkBytes <= 0 {
		return invalid("export.chunk_bytes", "chunk byte budget must be positive")
	}
	if c.Export.NameMaxLength <= 0 {
		return invalid("export.name_max_length", "name max length must be positive")
	}
	if c.Export.MaxDepth < 0 {
		return invalid("export.max_depth", "max depth cannot be negative")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return invalid("retry.max_retries", "max retries cannot be negative")
	}
	if c.Retry.Initial > c.Retry.Max {
		return invalid("retry.initial", "initial delay cannot exceed max delay")
	}
	return nil
}

func invalid(field, msg string) error {
	return errors.ValidationError(msg).WithContext("field", field).Build()
}
