package script

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractChineseScript(t *testing.T) {
	got := Extract("**主标题**\nHello\n第1章:Intro\nBody text\n第2章:Next\nMore text")

	if got.MainTitle != "Hello" {
		t.Fatalf("main title = %q", got.MainTitle)
	}
	want := []Chapter{
		{Number: 1, Title: "Intro", Body: "Body text"},
		{Number: 2, Title: "Next", Body: "More text"},
	}
	assertChapters(t, got.Chapters, want)
}

func TestExtractAllFields(t *testing.T) {
	text := strings.Join([]string{
		"**主标题**",
		"  Go 并发入门  ",
		"",
		"**备选标题1**",
		"十分钟学会 goroutine",
		"**备选标题2**：channel 的正确用法",
		"**视频简介**",
		"本期介绍 Go 的并发模型。",
		"",
		"第1章：开场",
		"大家好。",
		"今天聊并发。",
		"",
		"第2章：goroutine",
		"go 关键字。",
		"",
		"格式要求：每章不少于100字",
	}, "\n")

	got := Extract(text)
	if got.MainTitle != "Go 并发入门" {
		t.Errorf("main title = %q", got.MainTitle)
	}
	if got.AltTitle1 != "十分钟学会 goroutine" {
		t.Errorf("alt title 1 = %q", got.AltTitle1)
	}
	if got.AltTitle2 != "channel 的正确用法" {
		t.Errorf("alt title 2 = %q", got.AltTitle2)
	}
	if got.Description != "本期介绍 Go 的并发模型。" {
		t.Errorf("description = %q", got.Description)
	}
	assertChapters(t, got.Chapters, []Chapter{
		{Number: 1, Title: "开场", Body: "大家好。\n今天聊并发。"},
		{Number: 2, Title: "goroutine", Body: "go 关键字。"},
	})
}

func TestExtractEnglishHeaders(t *testing.T) {
	text := "**Main Title**\nLearning Go\n**Description**\nA short tour.\nChapter 1: Setup\nInstall it.\nChapter 2: Hello\nPrint something."
	got := Extract(text)
	if got.MainTitle != "Learning Go" || got.Description != "A short tour." {
		t.Fatalf("fields = %+v", got)
	}
	assertChapters(t, got.Chapters, []Chapter{
		{Number: 1, Title: "Setup", Body: "Install it."},
		{Number: 2, Title: "Hello", Body: "Print something."},
	})
}

func TestExtractRenumbersAndSkipsEmpty(t *testing.T) {
	text := "第3章：A\n正文一\n第7章：空\n\n第9章：\n正文三"
	got := Extract(text)
	assertChapters(t, got.Chapters, []Chapter{
		{Number: 1, Title: "A", Body: "正文一"},
		{Number: 2, Title: "Chapter 2", Body: "正文三"},
	})
}

func TestExtractStopsAtSectionHeader(t *testing.T) {
	text := "第1章：开场\n内容\n**注意事项**\n不属于章节"
	got := Extract(text)
	assertChapters(t, got.Chapters, []Chapter{{Number: 1, Title: "开场", Body: "内容"}})
}

func TestExtractFallsBackToContentChapter(t *testing.T) {
	text := "just some free text\nwith two lines"
	got := Extract(text)
	assertChapters(t, got.Chapters, []Chapter{{Number: 1, Title: FallbackChapterTitle, Body: text}})

}

func TestExtractBlankInputKeepsRawBuffer(t *testing.T) {
	for _, in := range []string{"   ", "\n\n", "\t", "\r\n"} {
		got := Extract(in)
		assertChapters(t, got.Chapters, []Chapter{{Number: 1, Title: FallbackChapterTitle, Body: in}})
	}
	if empty := Extract(""); len(empty.Chapters) != 0 {
		t.Fatalf("empty input produced chapters: %+v", empty.Chapters)
	}
}

func TestStructuredRejectsMixedSeparators(t *testing.T) {
	text := "第1章：开场\n你好\n第2章:结尾\n再见"
	if got := (Structured{}).Chapters(text); got != nil {
		t.Fatalf("structured accepted mixed separators: %+v", got)
	}
	assertChapters(t, Extract(text).Chapters, []Chapter{
		{Number: 1, Title: "开场", Body: "你好"},
		{Number: 2, Title: "结尾", Body: "再见"},
	})
}

func TestStructuredRejectsIndentedHeaders(t *testing.T) {
	text := "第1章：开场\n你好\n  第2章：结尾\n再见"
	if got := (Structured{}).Chapters(text); got != nil {
		t.Fatalf("structured accepted an indented header: %+v", got)
	}
	assertChapters(t, Extract(text).Chapters, []Chapter{
		{Number: 1, Title: "开场", Body: "你好"},
		{Number: 2, Title: "结尾", Body: "再见"},
	})
}

type headerOnly struct{}

func (headerOnly) Name() string              { return "none" }
func (headerOnly) Chapters(string) []Chapter { return nil }

func TestLineScanUsedWhenStructuredFindsNothing(t *testing.T) {
	text := "intro line\n  第1章：开场  \n  第一行\n第二行\n**备注**\n忽略\n第2章：结尾\n再见"
	e := NewExtractor(headerOnly{}, LineScan{})
	got := e.Extract(text)
	assertChapters(t, got.Chapters, []Chapter{
		{Number: 1, Title: "开场", Body: "第一行\n第二行"},
		{Number: 2, Title: "结尾", Body: "再见"},
	})
}

func TestLineScanKeepsLineBreaks(t *testing.T) {
	chapters := LineScan{}.Chapters("Chapter 4: One\na\n\nb\nChapter 5:\n")
	if len(chapters) != 1 {
		t.Fatalf("chapters = %+v", chapters)
	}
	if chapters[0].Body != "a\n\nb" || chapters[0].Number != 4 {
		t.Fatalf("chapter = %+v", chapters[0])
	}
}

func TestExtractNonEmptyInputAlwaysHasChapters(t *testing.T) {
	inputs := []string{
		"x",
		"第1章：",
		"**主标题**\n标题",
		"第1章：标题\n**备注**",
		"Chapter 1:\n\n",
		"   ",
		"\n\n",
		"\t",
	}
	for _, in := range inputs {
		got := Extract(in)
		if len(got.Chapters) == 0 {
			t.Errorf("Extract(%q) has no chapters", in)
		}
		for i, c := range got.Chapters {
			if c.Number != i+1 || c.Body == "" {
				t.Errorf("Extract(%q) chapter %d = %+v", in, i, c)
			}
		}
	}
}

func TestNewPayload(t *testing.T) {
	s := Extract("第1章：开场\n你好")
	p := NewPayload(s, "第1章：开场\n你好", "doc-1", "我的导图")
	if p.MainTitle != "我的导图" {
		t.Errorf("main title fallback = %q", p.MainTitle)
	}
	if !p.FromMindMap || p.DocumentID != "doc-1" || p.RawText == "" {
		t.Errorf("payload = %+v", p)
	}

	empty := NewPayload(ExtractedScript{}, "", "", "")
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"chapters":[]`) {
		t.Errorf("chapters should encode as an empty array: %s", data)
	}
}

func TestPayloadSchema(t *testing.T) {
	data, err := PayloadSchema()
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"mainTitle", "chapters", "fromMindMap", "documentId"} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Errorf("schema misses %s", key)
		}
	}
}

func assertChapters(t *testing.T, got, want []Chapter) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d chapters %+v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chapter %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
