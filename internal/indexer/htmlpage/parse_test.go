package htmlpage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guidePage = `<!doctype html>
<html>
<head>
  <title>Install | Docs</title>
  <meta property="og:image" content="/img/install.png">
  <meta property="og:image:alt" content="Installer window">
  <script>var ignored = "script text";</script>
</head>
<body>
  <nav>Home Guide Blog</nav>
  <main>
    <h1>Installation</h1>
    <p>Download the <em>installer</em>.</p>
    <span data-search-meta="author:ada"></span>
    <span data-search-filter="section:guide"></span>
    <span data-search-filter="lang">go</span>
    <span data-search-filter="lang">go</span>
    <div data-search-ignore><p>Edit this page</p></div>
    <h2 id="run">Run it</h2>
    <p>Run the installer.</p>
    <h2>Untitled</h2>
    <p>More steps.</p>
    <h3 id="verify">Verify</h3>
    <p>Check the version.</p>
  </main>
  <footer>Copyright</footer>
</body>
</html>`

func TestParse(t *testing.T) {
	page, err := Parse(strings.NewReader(guidePage), "/guide/install/")
	require.NoError(t, err)

	assert.Equal(t, "/guide/install/", page.URL)
	assert.Equal(t, "Installation", page.Title)
	assert.Equal(t, map[string]string{
		"author":            "ada",
		models.MetaImage:    "/img/install.png",
		models.MetaImageAlt: "Installer window",
	}, page.Meta)
	assert.Equal(t, map[string][]string{
		"section": {"guide"},
		"lang":    {"go"},
	}, page.Filters)

	require.Len(t, page.Sections, 3)
	assert.Equal(t, models.Section{
		Text: "Installation Download the installer . go go",
	}, page.Sections[0])
	assert.Equal(t, models.Section{
		Title:  "Run it",
		Anchor: "run",
		Text:   "Run it Run the installer. Untitled More steps.",
	}, page.Sections[1])
	assert.Equal(t, "verify", page.Sections[2].Anchor)

	assert.NotContains(t, page.Content, "Home Guide")
	assert.NotContains(t, page.Content, "Edit this page")
	assert.NotContains(t, page.Content, "Copyright")
	assert.NotContains(t, page.Content, "script text")
	assert.Contains(t, page.Content, "Check the version.")
}

func TestParseTitleFallback(t *testing.T) {
	page, err := Parse(strings.NewReader(
		`<html><head><title>Changelog</title></head><body><p>v1.0 released</p></body></html>`,
	), "/changelog.html")
	require.NoError(t, err)

	assert.Equal(t, "Changelog", page.Title)
	require.Len(t, page.Sections, 1)
	assert.Equal(t, "v1.0 released", page.Content)
}

func TestParseBodyMarker(t *testing.T) {
	page, err := Parse(strings.NewReader(`<html><body>
		<main><div>Sidebar</div><article data-search-body><p>Only this</p></article></main>
	</body></html>`), "/a/")
	require.NoError(t, err)

	assert.Equal(t, "Only this", page.Content)
}

func TestParseLeadingHeadingDropsEmptySection(t *testing.T) {
	page, err := Parse(strings.NewReader(
		`<html><body><main><h2 id="intro">Intro</h2><p>Hello</p></main></body></html>`,
	), "/a/")
	require.NoError(t, err)

	require.Len(t, page.Sections, 1)
	assert.Equal(t, "intro", page.Sections[0].Anchor)
	assert.Equal(t, "Intro Hello", page.Sections[0].Text)
}

func TestURLFor(t *testing.T) {
	root := filepath.FromSlash("/site")
	tests := []struct {
		file string
		want string
	}{
		{"/site/index.html", "/"},
		{"/site/guide/index.html", "/guide/"},
		{"/site/guide/install/index.html", "/guide/install/"},
		{"/site/changelog.html", "/changelog.html"},
	}
	for _, tt := range tests {
		got, err := URLFor(root, filepath.FromSlash(tt.file))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.file)
	}
}
