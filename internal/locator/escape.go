package locator

import (
	"fmt"
	"strings"
)

// escapeIdent serializes s as a CSS identifier, following CSS.escape().
func escapeIdent(s string) string {
	var sb strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		switch {
		case r == 0:
			sb.WriteRune('�')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&sb, "\\%x ", r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&sb, "\\%x ", r)
		case i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&sb, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			sb.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// quoteCSS renders s as a double-quoted CSS string.
func quoteCSS(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')

	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == 0:
			sb.WriteRune('�')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&sb, "\\%x ", r)
		default:
			sb.WriteRune(r)
		}
	}

	sb.WriteByte('"')

	return sb.String()
}

// quoteXPath renders s as an XPath 1.0 string literal. XPath has no escape
// sequences, so values holding both quote kinds are built with concat().
func quoteXPath(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if part != "" {
			args = append(args, `"`+part+`"`)
		}
	}

	return "concat(" + strings.Join(args, ", ") + ")"
}
