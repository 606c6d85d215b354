package domain

import (
	"fmt"
	"sort"
)

// SourceType names a kind of record source.
type SourceType string

const (
	SourceTypeDuckDB     SourceType = "duckdb"
	SourceTypeCSV        SourceType = "csv"
	SourceTypeS3         SourceType = "s3"
	SourceTypeDatabricks SourceType = "databricks"
	SourceTypeSnowflake  SourceType = "snowflake"
)

// SourceProfile is one named connection to a record source, with its
// driver-specific settings.
type SourceProfile struct {
	Name     string
	Type     SourceType
	Settings map[string]string
}

func (c SourceProfile) String() string {
	return fmt.Sprintf("%s:%s", c.Type, c.Name)
}

// Setting returns a setting, or fallback when it is unset.
func (c SourceProfile) Setting(key, fallback string) string {
	if v, ok := c.Settings[key]; ok && v != "" {
		return v
	}
	return fallback
}

// SettingNames lists the configured setting keys in order.
func (c SourceProfile) SettingNames() []string {
	keys := make([]string, 0, len(c.Settings))
	for k := range c.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
