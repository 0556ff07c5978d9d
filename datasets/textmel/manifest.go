// Package textmel loads (transcript, mel spectrogram) pairs listed in a manifest file
package textmel

import "bufio"
import "fmt"
import "io"
import "os"
import "strings"

import "github.com/pkg/errors"

// Entry is one manifest record
type Entry struct {
	AudioPath string
	Text      string
	Line      int
}

// ManifestError reports a malformed manifest line
type ManifestError struct {
	File string
	Line int
	Text string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("textmel: %s:%d: expected <audio_path>|<transcript>, got %q", e.File, e.Line, e.Text)
}

// ParseManifest reads "audio_path|transcript" lines. Blank lines are skipped.
// The transcript is everything after the first pipe.
func ParseManifest(r io.Reader, name string) (entries []Entry, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var line int
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		columns := strings.SplitN(text, "|", 2)
		if len(columns) != 2 || columns[0] == "" {
			return nil, &ManifestError{File: name, Line: line, Text: text}
		}
		entries = append(entries, Entry{AudioPath: columns[0], Text: columns[1], Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "textmel: read %s", name)
	}
	return entries, nil
}

// ReadManifest parses a manifest file
func ReadManifest(name string) ([]Entry, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "textmel: manifest")
	}
	defer file.Close()
	return ParseManifest(file, name)
}
