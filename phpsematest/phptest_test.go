// Copyright © 2024 The ELPS authors

package phpsematest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpectations(t *testing.T) {
	src := "<?php\nfoo(); // expect: unknown-function\n$x = 1;\ng(1, 2, 3); # expect: wrong-argument-count, unknown-function\n"
	got, err := ParseExpectations(src)
	require.NoError(t, err)
	assert.Equal(t, []Expectation{
		{2, "unknown-function"},
		{4, "unknown-function"},
		{4, "wrong-argument-count"},
	}, got)

	_, err = ParseExpectations("<?php\nfoo(); // expect: no-such-kind\n")
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	want := []Expectation{{1, "a"}, {2, "b"}, {3, "c"}}
	got := []Expectation{{2, "b"}, {3, "c"}, {4, "d"}}
	missing, unexpected := diff(want, got)
	assert.Equal(t, []Expectation{{1, "a"}}, missing)
	assert.Equal(t, []Expectation{{4, "d"}}, unexpected)

	missing, unexpected = diff(want, want)
	assert.Empty(t, missing)
	assert.Empty(t, unexpected)
}

func TestLogger(t *testing.T) {
	log := Logrus(t)
	log.WithField("file", "a.php").Debug("analyzed")
	l := NewLogger(t)
	_, err := l.Write([]byte("partial"))
	require.NoError(t, err)
	l.Flush()
}
