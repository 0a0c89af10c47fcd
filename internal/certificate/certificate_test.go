package certificate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Data {
	return Data{
		SubmissionID: 17,
		AuthorName:   "Dilnoza Karimova",
		Title:        "Soil salinity in the lower Amu Darya basin",
		Journal:      &models.Journal{NameEN: "Central Asian Journal of Agronomy", NameUZ: "Markaziy Osiyo agronomiya jurnali"},
		PublishedAt:  time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestDataID(t *testing.T) {
	assert.Equal(t, "CAJ-17-2025", sample().ID())
}

func TestVerificationCodeIsStable(t *testing.T) {
	a := VerificationCode("CAJ-17-2025")
	assert.Equal(t, a, VerificationCode("CAJ-17-2025"))
	assert.NotEqual(t, a, VerificationCode("CAJ-18-2025"))
}

func TestVerifyURL(t *testing.T) {
	g := NewGenerator("https://journal.example/verify/", "")
	url := g.VerifyURL(sample())
	assert.True(t, strings.HasPrefix(url, "https://journal.example/verify/CAJ-17-2025?code="), url)
}

func TestRender(t *testing.T) {
	g := NewGenerator("https://journal.example/verify", "")
	for _, lang := range []string{"en", "uz", "ru", "de"} {
		t.Run(lang, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, g.Render(&buf, sample(), lang))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := map[string]string{
		"":                      "en",
		"ru":                    "ru",
		"ru-RU,ru;q=0.9":        "ru",
		"uz-Latn-UZ":            "uz",
		"de-DE,ru;q=0.5":        "ru",
		"fr":                    "en",
		"en-GB,en;q=0.8":        "en",
		"not a language tag!!!": "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, MatchLanguage(in), "input %q", in)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"short title"}, wrap("short title", 60, 2))

	lines := wrap(strings.Repeat("word ", 30), 20, 2)
	require.Len(t, lines, 2)
	assert.LessOrEqual(t, len(lines[0]), 20)
	assert.Nil(t, wrap("", 10, 2))
}
