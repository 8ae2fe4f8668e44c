package generator

import (
	"fmt"
	"strings"

	"persona_studio/persona"
)

// Prompt 表示发送给 LLM 的消息。Labels 携带构造提示词时的原始字段，
// 供 Mock 或日志使用，不会发送给模型。
type Prompt struct {
	System string
	User   string
	// JSON 要求模型以 JSON 对象作答。
	JSON bool

	Labels map[string]string
}

const (
	LabelPersona  = "persona"
	LabelPlatform = "platform"
	LabelDraft    = "draft"
)

// 各平台的改写要点。
var platformGuides = map[persona.Platform]string{
	persona.LinkedIn:    "专业、结构化，突出行业洞察，适合职场人阅读，可用要点列表。",
	persona.Twitter:     "简短有力、观点犀利，必要时拆成 Thread，每条不超过 280 字符。",
	persona.Xiaohongshu: "标题党并带 Emoji，正文情感充沛、段落分明、Emoji 丰富，文末附话题标签。",
	persona.Douyin:      "口语化、短句、有画面感，适合作为短视频口播脚本朗读。",
	persona.Instagram:   "配图文案风格，首句抓人，语气轻松，结尾集中放置 hashtag。",
	persona.WeChat:      "公众号长文，使用 Markdown，一级标题作为文章标题，层次清晰、有深度。",
}

// BuildPersonaPrompt 把核心素材与分身设定拼成一条改写指令。
func BuildPersonaPrompt(draft string, p persona.Persona) Prompt {
	var sb strings.Builder
	sb.WriteString("任务：将提供的【核心素材】改写为适合特定【数字分身】和【发布平台】的文案。\n\n")
	sb.WriteString("【核心素材】:\n")
	sb.WriteString("\"" + draft + "\"\n\n")
	sb.WriteString("【目标数字分身】:\n")
	sb.WriteString(fmt.Sprintf("- 名称: %s\n", p.Name))
	sb.WriteString(fmt.Sprintf("- 角色设定: %s\n", p.Role))
	sb.WriteString(fmt.Sprintf("- 目标平台: %s\n", p.Platform))
	sb.WriteString(fmt.Sprintf("- 语气风格: %s\n", p.Tone))
	sb.WriteString(fmt.Sprintf("- 详细描述: %s\n\n", p.Description))
	sb.WriteString("【要求】:\n")
	sb.WriteString("1. 核心意图识别：先分析核心素材的关键信息和价值观，改写后不得偏离原意。\n")
	sb.WriteString(fmt.Sprintf("2. 平台化适配（%s）：", p.Platform))
	if guide, ok := platformGuides[p.Platform]; ok {
		sb.WriteString(guide)
	} else {
		sb.WriteString("遵循该平台常见的语气、结构与排版习惯。")
	}
	sb.WriteString("\n")
	sb.WriteString("3. 输出格式：只返回一个 JSON 对象，不要包含 Markdown 代码块标记或任何额外说明。\n\n")
	sb.WriteString("JSON 结构如下:\n")
	sb.WriteString(`{"content": "生成的文案内容", "analysis": "一句话解释为什么这样改写以符合该分身", "tags": ["tag1", "tag2", "tag3"]}`)
	sb.WriteString("\n")

	return Prompt{
		System: "你是一个专业的社交媒体内容策略专家。严格按要求输出 JSON。",
		User:   sb.String(),
		JSON:   true,
		Labels: map[string]string{
			LabelPersona:  p.Name,
			LabelPlatform: string(p.Platform),
			LabelDraft:    draft,
		},
	}
}
