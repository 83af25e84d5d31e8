package app

import (
	"fmt"
	"strings"

	"docforge/pkg/domain"
)

const (
	systemPrompt = "You are a professional document writing assistant. Follow the formatting instructions exactly and return only the requested text."

	sectionWordCount  = 250
	slideBulletCount  = 4
	contextPreviewLen = 200
)

func outlinePrompt(topic string, kind domain.DocumentKind, count int) string {
	if kind == domain.KindWord {
		return fmt.Sprintf(`Create a professional outline for a Word document about %q.
Generate exactly %d section titles that would make sense for a comprehensive document on this topic.

Requirements:
- Each section should be a clear, descriptive title
- Sections should flow logically from introduction to conclusion
- Use professional business language
- Return only the section titles, one per line
- Do not include numbers or bullets

Topic: %s`, topic, count, topic)
	}
	return fmt.Sprintf(`Create a professional outline for a PowerPoint presentation about %q.
Generate exactly %d slide titles that would make sense for a comprehensive presentation on this topic.

Requirements:
- Each slide should have a clear, engaging title
- Slides should flow logically from introduction to conclusion
- Use professional business language
- Return only the slide titles, one per line
- Do not include numbers or bullets

Topic: %s`, topic, count, topic)
}

func sectionPrompt(title, topic, context string) string {
	contextBlock := ""
	if context != "" {
		contextBlock = "\n\nContext from previous sections:\n" + context
	}
	return fmt.Sprintf(`Write professional content for a section titled %q in a document about %q.%s

Requirements:
- Write approximately %d words
- Use professional, clear business language
- Include specific details and actionable insights
- Structure content with proper flow and transitions
- Do not include the section title in the response

Section Title: %s
Main Topic: %s`, title, topic, contextBlock, sectionWordCount, title, topic)
}

func slidePrompt(title, topic, context string) string {
	contextBlock := ""
	if context != "" {
		contextBlock = "\n\nContext from previous slides:\n" + context
	}
	return fmt.Sprintf(`Create bullet points for a PowerPoint slide titled %q in a presentation about %q.%s

Requirements:
- Generate exactly %d bullet points
- Each bullet should be concise but informative (1-2 lines max)
- Use professional presentation language
- Return only the bullet point text, one per line
- Do not include bullet symbols or numbers

Slide Title: %s
Main Topic: %s`, title, topic, contextBlock, slideBulletCount, title, topic)
}

func refinePrompt(current, instruction string, kind domain.DocumentKind) string {
	if kind == domain.KindSlide {
		return fmt.Sprintf(`Refine the following slide bullet points based on this instruction: %q

Current content:
%s

Requirements:
- Apply the requested changes while maintaining professional quality
- Keep the same format (bullet points, one per line)
- Maintain appropriate length for presentation slides

Instruction: %s`, instruction, current, instruction)
	}
	return fmt.Sprintf(`Refine the following section content based on this instruction: %q

Current content:
%s

Requirements:
- Apply the requested changes while maintaining professional quality
- Keep content well-structured and informative
- Maintain professional business language

Instruction: %s`, instruction, current, instruction)
}

// placeholderOutline is the deterministic outline used when the
// text-generation capability is unavailable.
func placeholderOutline(topic string, kind domain.DocumentKind) []string {
	if kind == domain.KindWord {
		return []string{
			"Introduction to " + topic,
			"Background and Context",
			"Key Components of " + topic,
			"Implementation Strategies",
			"Conclusion and Future Outlook",
		}
	}
	return []string{
		"Introduction to " + topic,
		"Overview and Objectives",
		"Main Components",
		"Benefits and Applications",
		"Conclusion and Next Steps",
	}
}

func sectionFallback(title, topic string) string {
	return fmt.Sprintf("This section will cover important aspects of %s related to %s. Please refine this content to get detailed information.", title, topic)
}

func slideFallback(title, topic string) []string {
	return []string{
		"Key aspect of " + title,
		"Important consideration for " + topic,
		"Strategic approach to implementation",
		"Expected outcomes and benefits",
	}
}

// splitLines breaks generator output into trimmed non-empty lines.
func splitLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// sectionContext concatenates previews of already generated sections, in
// the order given, for threading into later generation calls.
func sectionContext(sections []domain.Section) string {
	var b strings.Builder
	for _, s := range sections {
		if s.Content == nil {
			continue
		}
		b.WriteString(s.Title)
		b.WriteString(": ")
		b.WriteString(truncateRunes(*s.Content, contextPreviewLen))
		b.WriteString("...\n")
	}
	return b.String()
}

// slideContext concatenates previews of already generated slides using
// their first two bullets.
func slideContext(slides []domain.Slide) string {
	var b strings.Builder
	for _, s := range slides {
		if s.Bullets == nil {
			continue
		}
		preview := s.Bullets
		if len(preview) > 2 {
			preview = preview[:2]
		}
		b.WriteString(s.Title)
		b.WriteString(": ")
		b.WriteString(strings.Join(preview, ", "))
		b.WriteString("...\n")
	}
	return b.String()
}
