package redemptioncode

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

type parser func(string) (string, bool)

var (
	bareID = regexp.MustCompile(`^[A-Za-z0-9]{6,20}$`)

	schemes = []string{"https://", "http://", "urn:claim:", "claim://", "claim:"}
)

// Decode извлекает claim token из того, что отсканировал или ввел мерчант.
// Парсеры пробуются по порядку; если ни один не подошел, возвращается
// обрезанный ввод как есть. Токены хранятся в верхнем регистре.
func Decode(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if id, ok := decode(s, 0); ok {
		return id
	}
	return s
}

func decode(s string, depth int) (string, bool) {
	chain := []parser{fromVerifyURL, fromQueryParam, fromJSON, fromBareID}
	for _, p := range chain {
		if id, ok := p(s); ok {
			return strings.ToUpper(id), true
		}
	}
	// срезаем схему и пробуем снова
	if depth < len(schemes) {
		for _, prefix := range schemes {
			if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
				return decode(s[len(prefix):], depth+1)
			}
		}
	}
	return "", false
}

func fromVerifyURL(s string) (string, bool) {
	i := strings.Index(s, "/verify/")
	if i < 0 {
		return "", false
	}
	rest := strings.TrimPrefix(s[i+len("/verify/"):], "claim/")
	rest = cut(rest, "?#/")
	if rest == "" {
		return "", false
	}
	return unescape(rest), true
}

func fromQueryParam(s string) (string, bool) {
	i := strings.Index(s, "claim_id=")
	if i < 0 {
		return "", false
	}
	v := cut(s[i+len("claim_id="):], "&#")
	if v == "" {
		return "", false
	}
	return unescape(v), true
}

func fromJSON(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	var payload struct {
		ClaimID string `json:"claim_id"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return "", false
	}
	if payload.ClaimID != "" {
		return strings.TrimSpace(payload.ClaimID), true
	}
	if payload.ID != "" {
		return strings.TrimSpace(payload.ID), true
	}
	return "", false
}

func fromBareID(s string) (string, bool) {
	if !bareID.MatchString(s) {
		return "", false
	}
	return s, true
}

func cut(s, stops string) string {
	if i := strings.IndexAny(s, stops); i >= 0 {
		return s[:i]
	}
	return s
}

func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}
