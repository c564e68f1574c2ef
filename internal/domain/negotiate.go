package domain

import "strings"

// Accepts reports whether an Accept-style header admits image/<candidate>.
// Tokens are matched by prefix only; q-values are not weighed.
func Accepts(header string, candidate Format) bool {
	if header == "" {
		return false
	}
	want := "image/" + string(candidate)
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if strings.HasPrefix(token, want) ||
			strings.HasPrefix(token, "image/*") ||
			strings.HasPrefix(token, "*/*") {
			return true
		}
	}
	return false
}

// HeaderValue looks a header up by name, ignoring case.
func HeaderValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Negotiate picks the output format that does not depend on the source:
// an explicit format, else an auto codec the Accept header admits. ok is false
// when the source's native format has to decide.
func Negotiate(intent Intent, accept string) (format string, ok bool) {
	if intent.HasFormat {
		return intent.Format, true
	}
	switch intent.Auto {
	case AutoWebP:
		if Accepts(accept, FormatWebP) {
			return string(FormatWebP), true
		}
	case AutoAVIF:
		if Accepts(accept, FormatAVIF) {
			return string(FormatAVIF), true
		}
	}
	return "", false
}

// ResolveFormat applies the full precedence: explicit, negotiated, native.
func ResolveFormat(intent Intent, accept, native string) string {
	if format, ok := Negotiate(intent, accept); ok {
		return format
	}
	return strings.ToLower(native)
}
