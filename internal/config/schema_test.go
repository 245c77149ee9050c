package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValue(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		key     string
		value   string
		want    interface{}
		wantErr string
	}{
		"bool":            {key: "release.draft", value: "TRUE", want: true},
		"duration":        {key: "release.read_timeout", value: "90s", want: (90 * time.Second).String()},
		"enum":            {key: "release.service", value: "gitea", want: "gitea"},
		"string":          {key: "release.tag_name", value: "rel-{{projectVersion}}", want: "rel-{{projectVersion}}"},
		"bad bool":        {key: "dry_run", value: "yes", wantErr: "invalid boolean"},
		"bad duration":    {key: "release.connect_timeout", value: "soon", wantErr: "invalid duration"},
		"bad enum":        {key: "changelog.sort", value: "RANDOM", wantErr: "valid options: ASC, DESC"},
		"unknown key":     {key: "release.unknown", value: "x", wantErr: "unknown configuration key"},
		"preset disabled": {key: "changelog.preset", value: "", want: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ValidateValue(tt.key, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Parsed)
			assert.Equal(t, tt.value, got.Raw)
		})
	}
}

func TestKnownKeysAreConsistent(t *testing.T) {
	t.Parallel()
	for key, schema := range KnownKeys {
		assert.Equal(t, key, schema.Path)
		assert.NotEmpty(t, schema.Description, key)
		if schema.Type == TypeEnum {
			assert.NotEmpty(t, schema.AllowedValues, key)
		}
	}
}
