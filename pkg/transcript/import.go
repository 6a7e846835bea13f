package transcript

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Matches a bulk-import line: Speaker Name: text content
	bulkLineRegex = regexp.MustCompile(`^([^:]+?)\s*:\s*(.+)$`)

	// Matches a timed transcript line: 0:11 : Speaker Name : text content
	timedLineRegex = regexp.MustCompile(`^(\d+):(\d{2})\s*:\s*([^:]+?)\s*:\s*(.+)$`)
)

var speakerCaser = cases.Title(language.English)

// NormalizeSpeaker collapses whitespace and title-cases a raw speaker name
// so "SARAH  CHEN" and "sarah chen" import as the same label.
func NormalizeSpeaker(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	if name == strings.ToUpper(name) || name == strings.ToLower(name) {
		return speakerCaser.String(strings.ToLower(name))
	}
	return name
}

// ImportBulk splits raw text on newlines and appends one entry per
// non-empty line, preserving line order. Lines matching
// "<speaker>: <text>" use the captured name; a literal "auto" speaker
// token re-classifies; anything else falls back to UnknownSpeaker.
func (s *Store) ImportBulk(rawText string) []Entry {
	var added []Entry
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		partial := Entry{Speaker: UnknownSpeaker, Text: line}
		if m := bulkLineRegex.FindStringSubmatch(line); m != nil {
			speaker := NormalizeSpeaker(m[1])
			text := strings.TrimSpace(m[2])
			if strings.EqualFold(speaker, "auto") {
				// Empty speaker routes through the classifier.
				partial = Entry{Text: text}
			} else {
				partial = Entry{Speaker: speaker, Text: text}
			}
		}
		added = append(added, s.Append(partial))
	}
	return added
}

// ImportTimed reads "m:ss : Speaker : text" lines and appends one entry per
// line, carrying the line's offset from start as the entry timestamp.
// Malformed lines are skipped.
func (s *Store) ImportTimed(r io.Reader, start time.Time) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var added []Entry

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m := timedLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		offset := time.Duration(minutes*60+seconds) * time.Second

		added = append(added, s.Append(Entry{
			Timestamp: start.Add(offset),
			Speaker:   NormalizeSpeaker(m[3]),
			Text:      strings.TrimSpace(m[4]),
		}))
	}

	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("scanning transcript: %w", err)
	}
	return added, nil
}
