package fetch

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/policyscope/policyscope/internal/model"
)

func testExtractor() *Extractor {
	return &Extractor{
		containerMinLen: 200,
		minContentLen:   500,
		maxContentLen:   100_000,
	}
}

func TestExtract_TypeSpecificContainerWins(t *testing.T) {
	long := strings.Repeat("These terms govern your use of the service. ", 20)
	htmlBody := `<html><body>
		<div class="content">short generic text</div>
		<div id="terms">` + long + `</div>
	</body></html>`

	got := testExtractor().Extract(htmlBody, model.PolicyTerms)

	if !strings.Contains(got, "These terms govern") {
		t.Errorf("expected terms container content, got %.80q", got)
	}
	if strings.Contains(got, "short generic text") {
		t.Errorf("generic container should not win over the type-specific one: %.80q", got)
	}
}

func TestExtract_NonContentMarkupStripped(t *testing.T) {
	long := strings.Repeat("We collect personal information as described here. ", 20)
	htmlBody := `<html><body>
		<nav>Site navigation links</nav>
		<main><script>var tracking = true;</script>` + long + `</main>
		<footer>Copyright footer</footer>
	</body></html>`

	got := testExtractor().Extract(htmlBody, model.PolicyPrivacy)

	for _, banned := range []string{"tracking = true", "Site navigation", "Copyright footer"} {
		if strings.Contains(got, banned) {
			t.Errorf("expected %q to be stripped, got %.120q", banned, got)
		}
	}
	if !strings.Contains(got, "We collect personal information") {
		t.Errorf("expected main content preserved, got %.80q", got)
	}
}

func TestExtract_ParagraphFallback(t *testing.T) {
	// No container clears the threshold; more than 5 paragraphs exist, so
	// their concatenation is used.
	para := "<p>" + strings.Repeat("Paragraph sentence here. ", 5) + "</p>"
	htmlBody := `<html><body><div class="x">tiny</div>` + strings.Repeat(para, 8) + `</body></html>`

	got := testExtractor().Extract(htmlBody, model.PolicyTerms)

	if !strings.Contains(got, "Paragraph sentence here.") {
		t.Errorf("expected paragraph text, got %.80q", got)
	}
	if !strings.Contains(got, "\n\n") {
		t.Error("paragraphs should be joined with blank lines")
	}
}

func TestExtract_WholeDocumentFallback(t *testing.T) {
	// Few paragraphs and no qualifying container: the whole-document tier
	// engages even though the result stays under the content threshold.
	htmlBody := `<html><body><p>only</p><span>a little text</span></body></html>`

	got := testExtractor().Extract(htmlBody, model.PolicyTerms)

	if !strings.Contains(got, "only") || !strings.Contains(got, "a little text") {
		t.Errorf("expected whole-document text, got %q", got)
	}
}

func TestExtract_Truncation(t *testing.T) {
	e := &Extractor{containerMinLen: 200, minContentLen: 500, maxContentLen: 1000}
	htmlBody := "<html><body><main>" + strings.Repeat("x", 5000) + "</main></body></html>"

	got := e.Extract(htmlBody, model.PolicyPrivacy)

	if len(got) != 1000+len(truncationMarker) {
		t.Errorf("expected capped length %d, got %d", 1000+len(truncationMarker), len(got))
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("expected truncation marker suffix")
	}
}

func TestExtract_TruncationKeepsRunesIntact(t *testing.T) {
	e := &Extractor{containerMinLen: 200, minContentLen: 500, maxContentLen: 1001}
	htmlBody := "<html><body><main>" + strings.Repeat("é", 3000) + "</main></body></html>"

	got := e.Extract(htmlBody, model.PolicyPrivacy)

	if !utf8.ValidString(got) {
		t.Error("truncated text contains an invalid UTF-8 sequence")
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("expected truncation marker suffix")
	}
	if want := 1000 + len(truncationMarker); len(got) != want {
		t.Errorf("expected capped length %d, got %d", want, len(got))
	}
}
