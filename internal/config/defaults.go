package config

import "time"

const (
	DefaultTokenFile     = ".env"
	DefaultTokenKey      = "CONFLUENCE_TOKEN"
	DefaultPageSize      = 100
	DefaultTimeout       = 30 * time.Second
	DefaultChunkBytes    = 1_000_000
	DefaultNameMaxLength = 30
	DefaultNotifySubject = "confexport.runs"
)
