package domain

import "strings"

// DefaultMimeTypes is the recording format preference order, best first.
var DefaultMimeTypes = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm;codecs=vp9",
	"video/webm;codecs=vp8",
	"video/webm",
	"video/mp4",
}

// FallbackMimeType tags artifacts when neither negotiation nor the recorder
// reported a type.
const FallbackMimeType = "video/webm"

// ParseMimeType splits a type like "video/webm;codecs=vp9,opus" into the
// container subtype ("webm") and its codec list.
//
// mime.ParseMediaType rejects the unquoted comma list that recorders use, so
// the parameter is split by hand.
func ParseMimeType(value string) (container string, codecs []string) {
	parts := strings.SplitN(value, ";", 2)
	mediaType := strings.ToLower(strings.TrimSpace(parts[0]))
	if slash := strings.Index(mediaType, "/"); slash >= 0 {
		container = mediaType[slash+1:]
	}
	if len(parts) < 2 {
		return container, nil
	}

	for _, param := range strings.Split(parts[1], ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "codecs") {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		for _, codec := range strings.Split(val, ",") {
			codec = strings.ToLower(strings.TrimSpace(codec))
			if codec != "" {
				codecs = append(codecs, codec)
			}
		}
	}
	return container, codecs
}
