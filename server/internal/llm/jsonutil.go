package llm

import (
	"regexp"
	"strings"
)

// fencedJSON 匹配 ```json ... ``` 代码块。
var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON 从模型输出中取出第一个 JSON 对象。
// 处理代码块包裹、前后说明文字和多余的尾逗号；找不到对象时返回空串。
func ExtractJSON(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); len(m) > 1 {
		return clean(m[1])
	}
	if obj := firstObject(content); obj != "" {
		return clean(obj)
	}
	return ""
}

// firstObject 按括号配对截取第一个完整对象，忽略字符串内部的括号。
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clean(raw string) string {
	return stripTrailingCommas(strings.TrimSpace(raw))
}

// stripTrailingCommas 去掉 } 或 ] 之前多余的逗号，字符串内部保持原样。
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == ',':
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
