package tags

import (
	"testing"

	"github.com/ariel-frischer/relsync/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	t.Parallel()
	props := template.Props{"projectName": "widgets"}

	tests := map[string]struct {
		tmpl        string
		wantGlob    string
		tag         string
		wantMatch   bool
		wantVersion string
		wantErr     bool
	}{
		"v prefix": {
			tmpl: "v{{projectVersion}}", wantGlob: "v*",
			tag: "v1.2.3", wantMatch: true, wantVersion: "1.2.3",
		},
		"go template syntax": {
			tmpl: "release-{{ .projectVersion }}", wantGlob: "release-*",
			tag: "release-2.0", wantMatch: true, wantVersion: "2.0",
		},
		"other placeholders resolved first": {
			tmpl: "{{projectName}}-v{{projectVersion}}", wantGlob: "widgets-v*",
			tag: "widgets-v0.3.0", wantMatch: true, wantVersion: "0.3.0",
		},
		"regex metacharacters are literal": {
			tmpl: "v{{projectVersion}}.final", wantGlob: "v*.final",
			tag: "v1.0Xfinal", wantMatch: false,
		},
		"no placeholder is a literal": {
			tmpl: "nightly", wantGlob: "nightly",
			tag: "anything", wantMatch: true, wantVersion: "anything",
		},
		"two placeholders rejected": {
			tmpl: "v{{projectVersion}}-{{projectVersion}}", wantErr: true,
		},
		"unknown placeholder rejected": {
			tmpl: "{{owner}}-{{projectVersion}}", wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := CompilePattern(tt.tmpl, template.New(), props)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGlob, p.Glob())
			assert.Equal(t, tt.wantMatch, p.Matches(tt.tag))
			if tt.wantMatch {
				v, ok := p.Extract(tt.tag)
				require.True(t, ok)
				assert.Equal(t, tt.wantVersion, v)
			}
		})
	}
}

func TestPatternFormat(t *testing.T) {
	t.Parallel()
	p, err := CompilePattern("v{{projectVersion}}", template.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", p.Format("1.4.0"))
	assert.True(t, p.HasVersion())
	assert.Equal(t, `^v(.+)$`, p.Regexp().String())
}
