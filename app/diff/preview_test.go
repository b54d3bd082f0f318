package diff

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPreviewEmptyDiff(t *testing.T) {
	if got := Preview("SomePage", "", Options{}); got != "" {
		t.Errorf("Expected empty preview for empty diff, got: %q", got)
	}
}

func TestPreviewFirstLineOnly(t *testing.T) {
	raw := "+一行目のテキスト\n+二行目のテキスト"
	got := Preview("SomePage", raw, Options{})
	if got != "一行目のテキスト" {
		t.Errorf("Expected first line only, got: %q", got)
	}
}

func TestPreviewStripsWikiLinks(t *testing.T) {
	raw := "+詳細は [[リンク先>https://example.com/page]] を参照"
	got := Preview("SomePage", raw, Options{})
	if got != "詳細は リンク先 を参照" {
		t.Errorf("Expected de-linked label, got: %q", got)
	}
}

func TestPreviewStripsBareURLs(t *testing.T) {
	raw := "+参考 https://example.com/long/path 終わり"
	got := Preview("SomePage", raw, Options{})
	if strings.Contains(got, "https://") {
		t.Errorf("Expected bare URL removed, got: %q", got)
	}
}

func TestPreviewWideCharacterBudget(t *testing.T) {
	wide := strings.Repeat("あ", 100)
	got := Preview("SomePage", "+"+wide, Options{MaxChars: 20})

	if w := runewidth.StringWidth(got); w > 20 {
		t.Errorf("Expected display width <= 20, got %d for %q", w, got)
	}
	// Wide runes count as two columns, so at most 10 of them fit.
	if n := len([]rune(got)); n != 10 {
		t.Errorf("Expected 10 wide runes, got %d", n)
	}
}

func TestPreviewSuppressionDisabledForFullDiffPages(t *testing.T) {
	raw := "-TESTtest\n+TESTtesttt"
	full := map[string]struct{}{"fullpage": {}}

	if got := Preview("OtherPage", raw, Options{}); got != "" {
		t.Errorf("Expected suppressed preview for regular page, got: %q", got)
	}
	// Name matching is case-insensitive.
	if got := Preview("FullPage", raw, Options{FullDiffPages: full}); got != "TESTtesttt" {
		t.Errorf("Expected unsuppressed preview for full-diff page, got: %q", got)
	}
}

func TestPreviewNothingSurvivesNormalization(t *testing.T) {
	raw := "+// only a comment\n+#br"
	if got := Preview("SomePage", raw, Options{}); got != "" {
		t.Errorf("Expected empty preview when only markup changed, got: %q", got)
	}
}

func TestTruncateWidthKeepsMarkdownTokenWhole(t *testing.T) {
	token := "[とても長いラベルのリンク](https://example.com/some/very/long/url)"
	s := "前文" + token + "後文あいうえお"

	got := TruncateWidth(s, 6)
	if !strings.Contains(got, token) {
		t.Errorf("Expected markdown token kept whole, got: %q", got)
	}
	// The token is outside the budget; surrounding prose still obeys it.
	rest := strings.Replace(got, token, "", 1)
	if w := runewidth.StringWidth(rest); w > 6 {
		t.Errorf("Expected surrounding prose width <= 6, got %d for %q", w, rest)
	}
}

func TestTruncateWidthPlainASCII(t *testing.T) {
	if got := TruncateWidth("abcdefghij", 4); got != "abcd" {
		t.Errorf("Expected abcd, got: %q", got)
	}
	if got := TruncateWidth("short", 80); got != "short" {
		t.Errorf("Expected untouched string, got: %q", got)
	}
}
