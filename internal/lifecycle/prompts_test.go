package lifecycle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPullAcceptsDefault(t *testing.T) {
	var out bytes.Buffer
	ok, err := ConfirmPull(&out, strings.NewReader("\n"), []string{"nomic-embed-text"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "nomic-embed-text")
}

func TestConfirmPullYesVariants(t *testing.T) {
	for _, input := range []string{"y\n", "Y\n", "yes\n", "YES\n"} {
		ok, err := ConfirmPull(&bytes.Buffer{}, strings.NewReader(input), []string{"m"})
		require.NoError(t, err)
		assert.True(t, ok, input)
	}
}

func TestConfirmPullDeclines(t *testing.T) {
	for _, input := range []string{"n\n", "no\n", "whatever\n"} {
		ok, err := ConfirmPull(&bytes.Buffer{}, strings.NewReader(input), []string{"m"})
		require.NoError(t, err)
		assert.False(t, ok, input)
	}
}

func TestConfirmPullReadError(t *testing.T) {
	// A reader with no newline yields io.EOF before ReadString completes.
	_, err := ConfirmPull(&bytes.Buffer{}, strings.NewReader(""), []string{"m"})
	require.Error(t, err)
}

func TestConfirmPullListsAllMissing(t *testing.T) {
	var out bytes.Buffer
	_, err := ConfirmPull(&out, strings.NewReader("n\n"), []string{"embed-model", "chat-model"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "embed-model, chat-model")
}

func TestPullBarRendersBytes(t *testing.T) {
	var out bytes.Buffer
	bar := NewPullBar(&out, 10)

	bar.Update(PullProgress{Status: "downloading", Total: 2048, Completed: 1024, Percent: 50})
	s := out.String()
	assert.Contains(t, s, "50%")
	assert.Contains(t, s, "1.0 KB/2.0 KB")
}

func TestPullBarStatusOnlyRecords(t *testing.T) {
	var out bytes.Buffer
	bar := NewPullBar(&out, 10)

	bar.Update(PullProgress{Status: "pulling manifest"})
	bar.Update(PullProgress{Status: "pulling manifest"})
	// Repeated identical statuses print once.
	assert.Equal(t, 1, strings.Count(out.String(), "pulling manifest"))
}

func TestPullBarClampsOverflow(t *testing.T) {
	var out bytes.Buffer
	bar := NewPullBar(&out, 4)

	bar.Update(PullProgress{Status: "downloading", Total: 10, Completed: 20, Percent: 200})
	assert.Equal(t, 4, strings.Count(out.String(), "█"))
}

func TestPullBarFinishEndsLine(t *testing.T) {
	var out bytes.Buffer
	bar := NewPullBar(&out, 10)
	bar.Finish()
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		512:                    "512 B",
		2 * 1024:               "2.0 KB",
		3 * 1024 * 1024:        "3.0 MB",
		5 * 1024 * 1024 * 1024: "5.0 GB",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormatBytes(n))
	}
}
