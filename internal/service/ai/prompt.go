package ai

import (
	"fmt"
	"strings"
)

// Tone selects the writing style of a description.
type Tone string

const (
	ToneMarketing Tone = "marketing"
	ToneFormal    Tone = "formal"
	ToneBrief     Tone = "brief"
)

// Valid reports whether t has a template.
func (t Tone) Valid() bool {
	_, ok := defaultTemplates[t]
	return ok
}

// PromptTemplate is the instruction set for one tone.
type PromptTemplate struct {
	SystemPrompt string
	Rules        []string
}

var defaultTemplates = map[Tone]*PromptTemplate{
	ToneMarketing: {
		SystemPrompt: "أنت مساعد خبير في كتابة وصف المنتجات الرقمية باللهجة العربية الرسمية.",
		Rules: []string{
			"اكتب فقرة تسويقية قصيرة لا تتجاوز ثلاث جمل.",
			"أبرز سرعة التسليم وسهولة الاستخدام.",
		},
	},
	ToneFormal: {
		SystemPrompt: "أنت كاتب محتوى لمتجر بطاقات رقمية، تكتب بأسلوب رسمي ودقيق.",
		Rules: []string{
			"اذكر طريقة الاستخدام ومنطقة البطاقة إن وردت في الملاحظات.",
			"تجنب المبالغة والوعود غير المؤكدة.",
		},
	},
	ToneBrief: {
		SystemPrompt: "أنت مساعد يكتب أوصافًا مختصرة جدًا للمنتجات الرقمية.",
		Rules: []string{
			"جملة واحدة فقط.",
		},
	},
}

// PromptBuilder renders the system and user prompts of a description request.
type PromptBuilder struct {
	templates map[Tone]*PromptTemplate
}

// NewPromptBuilder returns a builder with the built-in tones.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{templates: defaultTemplates}
}

func (b *PromptBuilder) template(t Tone) *PromptTemplate {
	if tpl, ok := b.templates[t]; ok {
		return tpl
	}
	return b.templates[ToneMarketing]
}

// System returns the system prompt for req.
func (b *PromptBuilder) System(req DescriptionRequest) string {
	tpl := b.template(req.Tone)
	if len(tpl.Rules) == 0 {
		return tpl.SystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(tpl.SystemPrompt)
	sb.WriteString("\n\nالتعليمات:")
	for _, rule := range tpl.Rules {
		sb.WriteString("\n- ")
		sb.WriteString(rule)
	}
	return sb.String()
}

// User returns the user prompt for req.
func (b *PromptBuilder) User(req DescriptionRequest) string {
	return strings.TrimSpace(fmt.Sprintf("اكتب وصفًا تسويقيًا قصيرًا للمنتج: %s. %s", strings.TrimSpace(req.NameAR), strings.TrimSpace(req.Hints)))
}
