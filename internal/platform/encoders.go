package platform

import (
	"bufio"
	"strings"

	"recordpanel/internal/domain"
)

type encoderSet map[string]bool

// parseEncoders reads the table printed by `ffmpeg -encoders`.
func parseEncoders(output string) encoderSet {
	set := encoderSet{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inTable {
			inTable = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		set[fields[1]] = true
	}
	return set
}

// outputFormat is how one mime type is produced by ffmpeg.
type outputFormat struct {
	MimeType     string
	Muxer        string
	VideoEncoder string
	VideoOptions []string
	AudioEncoder string
	AudioOptions []string
	// AudioNamed is set when the type requires audio: it lists an audio
	// codec, or lists no codecs at all.
	AudioNamed bool
}

// outputFormatFor maps a recorder mime type onto ffmpeg encoders. An empty
// type selects webm with vp8 and opus.
func outputFormatFor(mimeType string) (outputFormat, bool) {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "video/webm;codecs=vp8,opus"
	}
	container, codecs := domain.ParseMimeType(mimeType)

	switch container {
	case "webm":
		out := outputFormat{
			MimeType:     mimeType,
			Muxer:        "webm",
			VideoEncoder: "libvpx",
			VideoOptions: []string{"-deadline", "realtime", "-cpu-used", "8", "-b:v", "2M"},
			AudioEncoder: "libopus",
			AudioNamed:   len(codecs) == 0,
		}
		for _, codec := range codecs {
			switch {
			case codec == "vp9":
				out.VideoEncoder = "libvpx-vp9"
				out.VideoOptions = append(out.VideoOptions, "-row-mt", "1")
			case codec == "opus":
				out.AudioNamed = true
			case codec == "vp8":
			default:
				return outputFormat{}, false
			}
		}
		return out, true
	case "mp4":
		out := outputFormat{
			MimeType:     mimeType,
			Muxer:        "mp4",
			VideoEncoder: "libx264",
			VideoOptions: []string{"-preset", "veryfast", "-pix_fmt", "yuv420p"},
			AudioEncoder: "aac",
			AudioNamed:   len(codecs) == 0,
		}
		for _, codec := range codecs {
			switch {
			case strings.HasPrefix(codec, "mp4a"):
				out.AudioNamed = true
			case strings.HasPrefix(codec, "avc1"), strings.HasPrefix(codec, "h264"):
			default:
				return outputFormat{}, false
			}
		}
		return out, true
	default:
		return outputFormat{}, false
	}
}

func (s encoderSet) supports(mimeType string) bool {
	out, ok := outputFormatFor(mimeType)
	if !ok {
		return false
	}
	if !s[out.VideoEncoder] {
		return false
	}
	return !out.AudioNamed || s[out.AudioEncoder]
}
