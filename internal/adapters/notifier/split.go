package notifier

import "strings"

const telegramMessageLimit = 4096

// splitMessage режет текст на части не длиннее limit рун, по возможности по переводам строк.
func splitMessage(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	push := func(chunk string) {
		if chunk = strings.Trim(chunk, "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
	}
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			push(string(runes[start:]))
			break
		}
		cut := end
		for i := end; i > start; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		push(string(runes[start:cut]))
		start = cut
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}
