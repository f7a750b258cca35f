package prompt

import (
	"fmt"
	"strings"

	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

type Mode string

const (
	ModeSimple   Mode = "simple"
	ModeStandard Mode = "standard"
	ModeAdvanced Mode = "advanced"
)

// ParseMode maps a request value onto a Mode; unknown values are standard.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSimple:
		return ModeSimple
	case ModeAdvanced:
		return ModeAdvanced
	default:
		return ModeStandard
	}
}

// Build renders the generation prompt for a graph.
func Build(g mindmap.Graph, mode Mode) string {
	return Render(Summarize(g), mode)
}

// Render wraps an outline in the template for mode.
func Render(outline string, mode Mode) string {
	switch mode {
	case ModeSimple:
		return fmt.Sprintf(simpleTemplate, outline)
	case ModeAdvanced:
		return fmt.Sprintf(advancedTemplate, outline)
	default:
		return fmt.Sprintf(standardTemplate, outline)
	}
}

// The section headers below are the ones the script extractor recognises.
const outputFormat = `**主标题**
（一个吸引人的视频标题）

**备选标题1**
（第一个备选标题）

**备选标题2**
（第二个备选标题）

**视频简介**
（一段简短的视频简介）

第1章：（章节标题）
（章节正文）

第2章：（章节标题）
（章节正文）`

const simpleTemplate = `请根据以下思维导图快速生成一份简洁的YouTube视频文案。

# 思维导图
%s

# 输出格式
` + outputFormat + `

每个章节正文控制在三到五句话以内。`

const standardTemplate = `你是一名经验丰富的YouTube视频编剧。请根据以下思维导图生成一份结构完整的视频文案。

# 思维导图
%s

# 要求
- 每个一级分支对应一个章节，按思维导图中的顺序排列
- 章节正文口语化，适合直接朗读
- 开头需要有吸引观众的引入，结尾需要有总结和互动引导

# 重要格式要求
严格按照以下格式输出，不要添加额外的说明：
` + outputFormat

const advancedTemplate = `你是一名专业的YouTube内容策划和编剧。请根据以下思维导图撰写一份可以直接用于拍摄的专业视频脚本。

# 思维导图
%s

# 要求
- 每个一级分支对应一个章节，二级及以下分支作为章节内的要点展开
- 每个章节包含开场钩子、核心内容和过渡语
- 在合适的位置给出画面或B-roll建议，用方括号标注
- 标题需要兼顾搜索关键词和点击率
- 视频简介需要包含关键词，长度在150字以内

# 严格格式要求
严格按照以下格式输出，章节标题必须使用“第N章：”开头：
` + outputFormat
