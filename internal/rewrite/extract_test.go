package rewrite

import (
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"testing"
)

var anyHashtag = regexp.MustCompile(`[#＃]\S+`)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		original  string
		check     func(t *testing.T, got string)
		wantShape bool
	}{
		{
			name:     "markdown noise is stripped",
			raw:      "# 見出し\n**これヤバい**展開すぎる。\n1. リスト項目\n- 箇条書き\n```\ncode 最高。\n```",
			original: "『ハーレム学園』\n#PR",
			check: func(t *testing.T, got string) {
				if !strings.HasPrefix(got, "これヤバい展開すぎる…！") {
					t.Errorf("Extract() = %q", got)
				}
				if strings.Contains(got, "見出し") || strings.Contains(got, "code") {
					t.Errorf("Extract() kept markdown noise: %q", got)
				}
				if !strings.HasSuffix(got, "\n\n#ハーレム #PR") {
					t.Errorf("Extract() = %q, want title hashtag", got)
				}
			},
		},
		{
			name: "shortest casual fragment wins",
			raw:  "この作品は本当に最高でした。背徳感！",
			check: func(t *testing.T, got string) {
				if !strings.Contains(got, "背徳感…！") || strings.Contains(got, "この作品") {
					t.Errorf("Extract() = %q", got)
				}
				head, _, _ := strings.Cut(got, "背徳感")
				if !slices.Contains(firstPersonPrefixes, head) {
					t.Errorf("Extract() = %q, want a first-person prefix, got %q", got, head)
				}
			},
		},
		{
			name: "long casual fragment is truncated",
			raw:  strings.Repeat("あ", 70) + "最高。",
			check: func(t *testing.T, got string) {
				want := strings.Repeat("あ", 60) + "…"
				if !strings.HasPrefix(got, want) || strings.HasPrefix(got, want+"！") {
					t.Errorf("Extract() = %q, want truncated fragment without suffix", got)
				}
			},
		},
		{
			name: "scored sentence when no casual fragments",
			raw:  "例: 俺は楽しい\n自分は楽しいと思う\nすごい話",
			check: func(t *testing.T, got string) {
				if !strings.HasPrefix(got, "自分は楽しいと思う…！") {
					t.Errorf("Extract() = %q", got)
				}
			},
		},
		{
			name:     "full-width hashtag from model is dropped",
			raw:      "＃背徳感 俺これ最高すぎる！",
			original: "『テスト』\n#PR",
			check: func(t *testing.T, got string) {
				if strings.Contains(got, "＃") {
					t.Errorf("Extract() = %q, kept full-width hashtag", got)
				}
				tags := anyHashtag.FindAllString(got, -1)
				if len(tags) != 2 || tags[1] != DisclosureTag {
					t.Errorf("Extract() = %q, hashtags %v", got, tags)
				}
				if !strings.HasPrefix(got, "俺これ最高すぎる") {
					t.Errorf("Extract() = %q", got)
				}
			},
		},
		{
			name: "fallback text when nothing matches",
			raw:  "This is English only.",
			check: func(t *testing.T, got string) {
				for _, f := range fallbackTexts {
					if strings.Contains(got, f) {
						return
					}
				}
				t.Errorf("Extract() = %q, want one of the fallback texts", got)
			},
		},
		{
			name: "inline hashtags are dropped from the sentence",
			raw:  "俺これ最高 #拡散希望。",
			check: func(t *testing.T, got string) {
				if strings.Contains(got, "#拡散希望") {
					t.Errorf("Extract() = %q", got)
				}
			},
		},
		{
			name:     "empty response",
			raw:      "",
			original: "",
			check: func(t *testing.T, got string) {
				if got == "" {
					t.Error("Extract() returned empty text")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.raw, tt.original, testRand())
			assertPostShape(t, got)
			tt.check(t, got)
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("a", 55) + "漢字漢字漢字漢字"
	if got, want := truncateRunes(s, 60), strings.Repeat("a", 55)+"…"; got != want {
		t.Errorf("truncateRunes() = %q, want %q", got, want)
	}
	if got := truncateRunes("short", 60); got != "short" {
		t.Errorf("truncateRunes() = %q", got)
	}
}

func TestPickHashtag(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    string
	}{
		{"first rule wins", "妹とハーレム", "", "#ハーレム"},
		{"title rule", "義理の姉", "", "#背徳感"},
		{"full-width letters", "ＢＬ短編集", "", "#BL"},
		{"content BL", "普通のタイトル", "BLっぽい", "#BL"},
		{"content yuri", "", "百合展開", "#GL"},
		{"content TL", "", "TL作品", "#TL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickHashtag(tt.title, tt.content, testRand()); got != tt.want {
				t.Errorf("PickHashtag() = %q, want %q", got, tt.want)
			}
		})
	}

	got := PickHashtag("", "", testRand())
	if !slices.Contains(hashtagPool, got) {
		t.Errorf("PickHashtag() = %q, want a pool hashtag", got)
	}
}

func TestTitleOf(t *testing.T) {
	if got := TitleOf("『ハーレム学園』\n#PR"); got != "ハーレム学園" {
		t.Errorf("TitleOf() = %q", got)
	}
	if got := TitleOf("no title"); got != "" {
		t.Errorf("TitleOf() = %q", got)
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	tests := []struct {
		body      string
		wantText  string
		wantShape string
		wantOK    bool
	}{
		{`{"choices":[{"message":{"content":"  a  "}}]}`, "a", "choices", true},
		{`{"choices":[],"data":[{"content":"b"}]}`, "b", "data", true},
		{`{"response":"c"}`, "c", "response", true},
		{`{"choices":[{"message":{}}],"response":"d"}`, "d", "response", true},
		{`{"other":1}`, "", "", false},
		{`not json`, "", "", false},
	}
	for _, tt := range tests {
		text, shape, ok := UnwrapEnvelope([]byte(tt.body))
		if text != tt.wantText || shape != tt.wantShape || ok != tt.wantOK {
			t.Errorf("UnwrapEnvelope(%s) = %q, %q, %v", tt.body, text, shape, ok)
		}
	}
}
