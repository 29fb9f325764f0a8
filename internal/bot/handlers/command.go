package handlers

import "strings"

// ParseCommand выделяет команду и аргументы: "/start@bot abc" -> ("/start", "abc")
func ParseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ := strings.Cut(text, " ")
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}
