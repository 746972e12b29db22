package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRemovesVolatileStamps(t *testing.T) {
	n := Default()
	raw := "Form: Demographics\nForm Version: 3.0.21 (draft)\nSubject initials\n" +
		"Generated Time (GMT): 2024-05-01 10:22\nPage 3 of 17\n\\Confidential\\ Visit date"
	got := n.Normalize(raw)
	assert.Equal(t, "Form: Demographics\n\nSubject initials\n\n Visit date", got)
	assert.NotContains(t, got, "3.0.21")
	assert.NotContains(t, got, "2024-05-01")
	assert.NotContains(t, got, "Page 3 of 17")
	assert.NotContains(t, got, "Confidential")
}

func TestNormalizeCollapsesBlankLines(t *testing.T) {
	n := Default()
	got := n.Normalize("\n\n  Heading\n\n\n\n   \nBody line\n\n")
	assert.Equal(t, "Heading\n\nBody line", got)
}

func TestNormalizeKeepsRealEdits(t *testing.T) {
	n := Default()
	before := "Form: Vital Signs\nSystolic blood pressure (mmHg)\nPage 1 of 2"
	after := "Form: Vital Signs\nSystolic blood pressure (mmHg), seated\nPage 1 of 3"

	nb, na := n.Normalize(before), n.Normalize(after)
	assert.NotEqual(t, nb, na, "a genuine wording change must survive normalisation")
	assert.Contains(t, na, "seated")

	// Only the page counter differs here, so the normalised texts are equal.
	assert.Equal(t, n.Normalize("Form: X\nBody\nPage 1 of 2"), n.Normalize("Form: X\nBody\nPage 2 of 9"))
}

func TestNormalizeDoesNotTouchLookalikes(t *testing.T) {
	n := Default()
	cases := []string{
		"Form: Adverse Events",
		"Pages 3 to 4 were left blank",
		"Confidential information is stored separately",
		"Version history is listed on page 2",
	}
	for _, c := range cases {
		assert.Equal(t, c, n.Normalize(c))
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := Default()
	in := "Form: A\nPage 1 of 1\n\n\nText"
	assert.Equal(t, n.Normalize(in), n.Normalize(in))
	assert.Equal(t, n.Normalize(in), n.Normalize(n.Normalize(in)))
}

func TestLabel(t *testing.T) {
	n := Default()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple", "Header\nForm: Demographics  \nbody", "Demographics"},
		{"first wins", "Form: A\nForm: B", "A"},
		{"missing", "no label here", ""},
		{"empty", "", ""},
		{"empty value", "Form:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Label(tt.text))
		})
	}
}

func TestNewRejectsBadPatterns(t *testing.T) {
	_, err := New([]string{"("}, "")
	require.Error(t, err)

	_, err = New(nil, "Form:")
	require.Error(t, err, "label pattern without a capture group is unusable")

	n, err := New([]string{`(?i)draft`}, `Template=(\w+)`)
	require.NoError(t, err)
	assert.Equal(t, "Body", n.Normalize("DRAFT Body"))
	assert.Equal(t, "AE01", n.Label("x Template=AE01 y"))
}
