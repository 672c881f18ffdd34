// Package srtfile parses and serializes SubRip (.srt) subtitle text, the
// format the opaque STT Runner emits and that both the client pipeline (C6)
// and HTTP handler (C8) treat as the payload body (spec glossary "SRT").
// No SRT library appears anywhere in the reference corpus this module was
// built from, so parsing is hand-rolled on bufio/strings the way the
// teacher hand-rolls its own text formats.
package srtfile

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mpv-stt/sttcore/internal/sttcore"
)

// Cue is a single numbered subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  []string
}

// IsBlank reports whether body consists entirely of ASCII whitespace, the
// condition the client pipeline (C6) treats as "empty SRT" rather than
// attempting to parse it (spec §4.6 step 7).
func IsBlank(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			continue
		default:
			return false
		}
	}
	return true
}

// Parse reads SRT cues from raw bytes. A blank body parses to a nil, empty
// cue list rather than an error (spec §4.6 "empty SRT").
func Parse(body []byte) ([]Cue, error) {
	if IsBlank(body) {
		return nil, nil
	}

	var cues []Cue
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		indexLine := strings.TrimSpace(scanner.Text())
		if indexLine == "" {
			continue
		}
		index, err := strconv.Atoi(indexLine)
		if err != nil {
			return nil, sttcore.Wrap(sttcore.KindInvalidSrt, "expected cue index line", err)
		}

		if !scanner.Scan() {
			return nil, sttcore.New(sttcore.KindInvalidSrt, "missing timecode line")
		}
		start, end, err := parseTimecodeLine(scanner.Text())
		if err != nil {
			return nil, err
		}

		var text []string
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				break
			}
			text = append(text, line)
		}

		cues = append(cues, Cue{Index: index, Start: start, End: end, Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, sttcore.Wrap(sttcore.KindInvalidSrt, "scan failed", err)
	}
	return cues, nil
}

func parseTimecodeLine(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, sttcore.New(sttcore.KindInvalidSrt, "malformed timecode line")
	}
	start, err := parseTimecode(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimecode(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimecode decodes HH:MM:SS,mmm.
func parseTimecode(s string) (time.Duration, error) {
	var h, m, sec, ms int
	if _, err := fmt.Sscanf(s, "%d:%d:%d,%d", &h, &m, &sec, &ms); err != nil {
		return 0, sttcore.Wrap(sttcore.KindInvalidSrt, "malformed timecode", err)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second + time.Duration(ms)*time.Millisecond
	return d, nil
}

// Serialize renders cues back to canonical SRT text.
func Serialize(cues []Cue) []byte {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n", c.Index)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimecode(c.Start), formatTimecode(c.End))
		for _, line := range c.Text {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func formatTimecode(d time.Duration) string {
	total := d.Milliseconds()
	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
