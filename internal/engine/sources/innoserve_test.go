package sources

import (
	"errors"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_innoserve/internal/engine"
)

const sampleListing = `<html><body>
<form method="post" action="./award.aspx">
<input type="hidden" name="__VIEWSTATE" value="dDwtMTQ4OTYw" />
<input type="hidden" name="__EVENTVALIDATION" value="abc123" />
<input type="text" name="visible_field" value="ignored" />
<table id="ctl00_ContentPlaceHolder1_gv_award">
<tr><th>組別</th><th>名次</th><th>編號</th><th>學校</th><th>作品名稱</th><th>指導老師</th><th>隊員</th></tr>
<tr>
<td>資訊應用組</td><td>第一名</td><td>A01</td><td>國立臺灣大學</td>
<td><a href="https://www.youtube.com/watch?v=dQw4w9WgXcQ">智慧手語辨識系統</a></td>
<td>王老師</td><td>三人</td>
</tr>
<tr>
<td>資訊應用組</td><td>第二名</td><td>A02</td><td>國立成功大學</td>
<td><a href="detail.aspx?id=42">校園導覽機器人</a></td>
<td>李老師</td><td>四人</td>
</tr>
<tr>
<td>資訊應用組</td><td>佳作</td><td>A03</td><td>國立清華大學</td>
<td>純文字作品</td>
<td>張老師</td><td>兩人</td>
</tr>
<tr><td>short</td><td>row</td></tr>
</table>
</form>
</body></html>`

func TestParseAwardTable(t *testing.T) {
	items, err := parseAwardTable(sampleListing, 29, "https://innoserve.tca.org.tw/award.aspx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (header and short rows skipped)", len(items))
	}

	first := items[0]
	if first.Group != "資訊應用組" || first.Rank != "第一名" || first.School != "國立臺灣大學" {
		t.Errorf("listing columns mismapped: %+v", first)
	}
	if first.Title != "智慧手語辨識系統" {
		t.Errorf("title = %q", first.Title)
	}
	if first.MediaURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("media URL = %q", first.MediaURL)
	}
	if first.DetailURL != "" {
		t.Errorf("video entry should have no detail URL, got %q", first.DetailURL)
	}
	if first.ID != "29-dQw4w9WgXcQ" {
		t.Errorf("item ID = %q, want edition-videoID", first.ID)
	}

	second := items[1]
	if second.MediaURL != "" {
		t.Errorf("non-video entry got media URL %q", second.MediaURL)
	}
	if second.DetailURL != "https://innoserve.tca.org.tw/detail.aspx?id=42" {
		t.Errorf("detail URL not resolved against the page: %q", second.DetailURL)
	}
	if second.SourceURL != second.DetailURL {
		t.Errorf("source URL = %q, want the detail page", second.SourceURL)
	}
	if !strings.HasPrefix(second.ID, "29-") {
		t.Errorf("item ID = %q, want edition prefix", second.ID)
	}

	third := items[2]
	if third.MediaURL != "" || third.DetailURL != "" {
		t.Errorf("link-less entry got URLs: %+v", third)
	}
	if third.SourceURL != "https://innoserve.tca.org.tw/award.aspx" {
		t.Errorf("source URL = %q, want the listing page", third.SourceURL)
	}
}

func TestParseAwardTableStableIDs(t *testing.T) {
	a, err := parseAwardTable(sampleListing, 29, "https://innoserve.tca.org.tw/award.aspx")
	if err != nil {
		t.Fatal(err)
	}
	b, err := parseAwardTable(sampleListing, 29, "https://innoserve.tca.org.tw/award.aspx")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("item %d ID unstable: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
	seen := map[string]bool{}
	for _, item := range a {
		if seen[item.ID] {
			t.Errorf("duplicate ID %q", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestParseAwardTableMissingTable(t *testing.T) {
	_, err := parseAwardTable("<html><body><p>maintenance</p></body></html>", 29, "https://example.com")
	if err == nil {
		t.Fatal("expected error for page without the award table")
	}
	var perr *engine.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("error type = %T, want *engine.ParseError", err)
	}
}

func TestParseHiddenInputs(t *testing.T) {
	form, err := parseHiddenInputs([]byte(sampleListing))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := form.Get("__VIEWSTATE"); got != "dDwtMTQ4OTYw" {
		t.Errorf("__VIEWSTATE = %q", got)
	}
	if got := form.Get("__EVENTVALIDATION"); got != "abc123" {
		t.Errorf("__EVENTVALIDATION = %q", got)
	}
	if form.Has("visible_field") {
		t.Error("non-hidden input must not be collected")
	}
}

func TestParseHiddenInputsRequiresViewState(t *testing.T) {
	body := []byte(`<form><input type="hidden" name="other" value="x" /></form>`)
	if _, err := parseHiddenInputs(body); err == nil {
		t.Fatal("expected error when __VIEWSTATE is absent")
	}
}

func TestExtractDescription(t *testing.T) {
	page := []byte(`<html><head><style>.x{}</style></head><body>
<nav>選單</nav>
<article><h1>作品介紹</h1><p>以電腦視覺控制的機械手臂。</p><script>track()</script></article>
<footer>版權</footer>
</body></html>`)

	desc, err := extractDescription(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(desc, "機械手臂") {
		t.Errorf("description missing article text: %q", desc)
	}
	for _, junk := range []string{"選單", "版權", "track()"} {
		if strings.Contains(desc, junk) {
			t.Errorf("description contains chrome text %q: %q", junk, desc)
		}
	}
}
