package service

import (
	"strings"
)

// Cue 单条字幕：文案、起始时间和时长（秒），按startTime严格递增输出
type Cue struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

// 长句切分用的连词
var cueConjunctions = map[string]bool{
	"and":     true,
	"but":     true,
	"or":      true,
	"so":      true,
	"because": true,
}

// BuildCues 根据脚本文本合成字幕序列。已知目标时长时按词数比例分配，
// 否则按固定语速估算。空脚本返回空序列，不视为错误。
func BuildCues(script string, duration float64) []Cue {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}

	sentences := splitSentences(script)
	if len(sentences) == 0 {
		return nil
	}

	totalWords := 0
	for _, s := range sentences {
		totalWords += len(strings.Fields(s))
	}
	if totalWords == 0 {
		return nil
	}

	// 默认按估算语速2.5词/秒，已知时长时按总词数反推
	wps := 2.5
	floor := 2.0
	maxWords := 15
	if duration > 0 {
		wps = float64(totalWords) / duration
		floor = 1.5
		maxWords = 12
	}

	var cues []Cue
	start := 0.0
	for _, sentence := range sentences {
		phrases := []string{sentence}
		if len(strings.Fields(sentence)) > maxWords {
			phrases = splitPhrases(sentence)
		}

		for _, phrase := range phrases {
			wordCount := len(strings.Fields(phrase))
			if wordCount == 0 {
				continue
			}
			d := float64(wordCount) / wps
			if d < floor {
				d = floor
			}
			cues = append(cues, Cue{
				Text:      phrase,
				StartTime: start,
				Duration:  d,
			})
			start += d
		}
	}

	return cues
}

// splitSentences 按句末标点切分脚本
func splitSentences(script string) []string {
	fields := strings.FieldsFunc(script, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var sentences []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			sentences = append(sentences, f)
		}
	}
	return sentences
}

// splitPhrases 将超长句子切分成短语：先按标点和连词切，仍然过长的再对半切
func splitPhrases(sentence string) []string {
	var parts []string
	for _, seg := range splitOnClausePunct(sentence) {
		parts = append(parts, splitOnConjunction(seg)...)
	}

	var result []string
	for _, p := range parts {
		result = append(result, bisectLongPhrase(p)...)
	}
	return result
}

// splitOnClausePunct 按逗号、分号、冒号切分
func splitOnClausePunct(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ':'
	})

	var parts []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			parts = append(parts, f)
		}
	}
	return parts
}

// splitOnConjunction 在第一个连词处切分，连词归入后半段
func splitOnConjunction(s string) []string {
	words := strings.Fields(s)
	for i := 1; i < len(words)-1; i++ {
		if cueConjunctions[strings.ToLower(words[i])] {
			return []string{
				strings.Join(words[:i], " "),
				strings.Join(words[i:], " "),
			}
		}
	}
	return []string{s}
}

// bisectLongPhrase 超过60字符的短语按词数对半递归切分
func bisectLongPhrase(s string) []string {
	if len(s) <= 60 {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) < 2 {
		return []string{s}
	}

	mid := len(words) / 2
	left := strings.Join(words[:mid], " ")
	right := strings.Join(words[mid:], " ")
	return append(bisectLongPhrase(left), bisectLongPhrase(right)...)
}
