package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInScope(t *testing.T) {
	t.Parallel()
	seed := "https://www.sunriseclinic.com/"

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"same host", "https://www.sunriseclinic.com/about", true},
		{"www stripped on candidate", "https://sunriseclinic.com/team", true},
		{"http same host", "http://sunriseclinic.com/contact", true},
		{"relative reference", "/providers", true},
		{"other domain", "https://facebook.com/sunriseclinic", false},
		{"subdomain differs", "https://portal.sunriseclinic.com/", false},
		{"mailto", "mailto:info@sunriseclinic.com", false},
		{"tel", "tel:+15125550100", false},
		{"ftp scheme", "ftp://sunriseclinic.com/file", false},
		{"javascript scheme", "javascript:void(0)", false},
		{"pdf", "https://sunriseclinic.com/forms/intake.pdf", false},
		{"uppercase image", "https://sunriseclinic.com/img/HERO.JPG", false},
		{"stylesheet", "https://sunriseclinic.com/site.css", false},
		{"raw json", "https://sunriseclinic.com/api/data.json", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsInScope(tt.candidate, seed))
		})
	}
}

func TestIsInScope_DomainScopingProperty(t *testing.T) {
	t.Parallel()
	seeds := []string{"https://clinic-a.com/", "https://www.clinic-a.com/", "http://clinic-a.com"}
	foreign := []string{
		"https://clinic-b.com/about",
		"https://www.clinic-b.com/team",
		"https://clinic-a.com.evil.net/",
		"https://notclinic-a.com/",
	}
	disallowed := []string{".pdf", ".docx", ".zip", ".png", ".webp", ".mp4", ".wav", ".js", ".json"}

	for _, seed := range seeds {
		for _, f := range foreign {
			assert.False(t, IsInScope(f, seed), "%s from %s", f, seed)
		}
		for _, ext := range disallowed {
			assert.False(t, IsInScope("https://clinic-a.com/about/file"+ext, seed), ext)
			assert.False(t, IsInScope("/team/photo"+ext, seed), ext)
		}
	}
}

func TestRelevanceScore(t *testing.T) {
	t.Parallel()
	n := len(priorityTerms)

	assert.Equal(t, n, RelevanceScore("https://c.com/about"))
	assert.Equal(t, n, RelevanceScore("https://c.com/about-us"), "about matches before about-us")
	assert.Equal(t, n-3, RelevanceScore("https://c.com/team"))
	assert.Equal(t, n-6, RelevanceScore("https://c.com/Providers/"))
	assert.Equal(t, n-16, RelevanceScore("https://c.com/contact"))
	assert.Equal(t, 1, RelevanceScore("https://c.com/offices"))
	assert.Equal(t, 0, RelevanceScore("https://c.com/"))
	assert.Equal(t, 0, RelevanceScore("https://c.com/blog/post-1"))
	assert.Greater(t, RelevanceScore("https://c.com/meet-our-physicians"), RelevanceScore("https://c.com/services"))
}

func TestRankLinks(t *testing.T) {
	t.Parallel()
	links := []string{
		"https://c.com/blog",
		"https://c.com/services",
		"https://c.com/patient-forms",
		"https://c.com/about",
		"https://c.com/blog",
		"https://c.com/contact",
	}

	assert.Equal(t, []string{
		"https://c.com/about",
		"https://c.com/contact",
		"https://c.com/services",
		"https://c.com/blog",
		"https://c.com/patient-forms",
	}, RankLinks(links))
	assert.Empty(t, RankLinks(nil))
}

func TestNormalizeSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example-clinic.com", "https://example-clinic.com/", false},
		{"  https://example-clinic.com  ", "https://example-clinic.com/", false},
		{"http://example-clinic.com/about#top", "http://example-clinic.com/about", false},
		{"HTTPS://Example-Clinic.com/x?y=1", "https://Example-Clinic.com/x?y=1", false},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeSeed(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSiteKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "sunriseclinic.com", SiteKey("https://www.sunriseclinic.com/about"))
	assert.Equal(t, "clinic.co.uk", SiteKey("https://portal.clinic.co.uk/"))
	assert.Equal(t, "localhost", SiteKey("http://localhost:8080/"))
}

func TestScope_Allows(t *testing.T) {
	t.Parallel()
	s, err := NewScope("https://clinic.example/", []string{"/blog/*", " /Careers/* "})
	require.NoError(t, err)

	assert.True(t, s.Allows("https://clinic.example/about"))
	assert.False(t, s.Allows("http://clinic.example/about"), "scheme must match the seed origin")
	assert.False(t, s.Allows("https://www.clinic.example/about"), "host must match the seed origin")
	assert.False(t, s.Allows("https://clinic.example/blog"))
	assert.False(t, s.Allows("https://clinic.example/blog/2024/post"))
	assert.False(t, s.Allows("https://clinic.example/careers/nurse"))
	assert.True(t, s.Allows("https://clinic.example/blogroll"))
	assert.False(t, s.Allows("https://clinic.example/brochure.pdf"))

	_, err = NewScope("not a url", nil)
	assert.Error(t, err)
}
