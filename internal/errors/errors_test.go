package errors

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cause := errors.New("connection reset")

	tests := map[string]struct {
		err  error
		want ErrorCategory
	}{
		"cli error keeps its category": {
			err:  NewConfigError("bad"),
			want: Configuration,
		},
		"wrapped cli error": {
			err:  fmt.Errorf("loading: %w", NewArgumentError("bad flag")),
			want: Argument,
		},
		"conflict": {
			err:  fmt.Errorf("reconcile: %w", &ConflictError{Tag: "v2.0.0"}),
			want: Conflict,
		},
		"remote failure": {
			err:  NewReleaseError("create release", "v1.0.0", cause),
			want: Remote,
		},
		"joined asset failures": {
			err:  errors.Join(NewReleaseError("upload asset", "a.zip", cause), NewReleaseError("upload asset", "b.zip", cause)),
			want: Remote,
		},
		"anything else": {
			err:  cause,
			want: Runtime,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestReleaseError(t *testing.T) {
	cause := errors.New("502 bad gateway")

	err := NewReleaseError("upload asset", "widget.zip", cause)
	assert.EqualError(t, err, "upload asset widget.zip: 502 bad gateway")
	assert.ErrorIs(t, err, cause)

	assert.EqualError(t, NewReleaseError("list tags", "", cause), "list tags: 502 bad gateway")
	assert.NoError(t, NewReleaseError("list tags", "", nil))
}

func TestConflictError(t *testing.T) {
	assert.EqualError(t, &ConflictError{Tag: "v2.0.0"}, "a published release for tag v2.0.0 already exists")
	assert.EqualError(t, &ConflictError{Tag: "v2.0.0", Draft: true}, "a draft release for tag v2.0.0 already exists")
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("boom")
	assert.Nil(t, Wrap(nil, Runtime))
	assert.ErrorIs(t, Wrap(cause, Runtime), cause)
	assert.ErrorIs(t, WrapWithMessage(cause, Repository, "opening"), cause)
	assert.Equal(t, "opening: boom", WrapWithMessage(cause, Repository, "opening").Message)
}

func TestFormatErrorPlain(t *testing.T) {
	err := NewArgumentErrorWithUsage("missing tag", "relsync release --tag <name>", "Pass --tag")

	want := "Error [Argument Error]: missing tag\n" +
		"\nUsage: relsync release --tag <name>\n" +
		"\nTo fix this:\n" +
		"  • Pass --tag\n"
	assert.Equal(t, want, FormatErrorPlain(err))
	assert.Empty(t, FormatErrorPlain(nil))
}

func TestFprintError_Conflict(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	FprintError(&buf, fmt.Errorf("reconcile: %w", &ConflictError{Tag: "v2.0.0"}))

	out := buf.String()
	require.Contains(t, out, "Error [Release Conflict]: a published release for tag v2.0.0 already exists")
	assert.Contains(t, out, "release.overwrite: true")
}

func TestMessages(t *testing.T) {
	tests := map[string]struct {
		err      *CLIError
		category ErrorCategory
		contains string
	}{
		"missing token":   {err: MissingToken("gitea"), category: Configuration, contains: "GITEA_TOKEN"},
		"unknown service": {err: UnknownService("gitlab", []string{"github", "gitea"}), category: Configuration, contains: "github, gitea"},
		"repository":      {err: RepositoryNotFound("/tmp/x", errors.New("no .git")), category: Repository, contains: "--dir"},
		"shallow clone":   {err: ShallowClone(), category: Runtime, contains: "--unshallow"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Contains(t, FormatErrorPlain(tt.err), tt.contains)
		})
	}
}
