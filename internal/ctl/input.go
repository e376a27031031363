package ctl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/battle64/internal/domain/model"
)

// ErrInput is wrapped by every input decoding error.
var ErrInput = errors.New("invalid input")

// rawTime accepts a time written as a string, a bare number or null.
type rawTime string

func (t *rawTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = rawTime(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.New("time must be a string, a number or null")
		}
		*t = rawTime(n.String())
	}
	return nil
}

func (t *rawTime) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!null" {
		*t = ""
		return nil
	}
	*t = rawTime(node.Value)
	return nil
}

type fileEntry struct {
	ID                string    `json:"id" yaml:"id"`
	UserID            string    `json:"user_id" yaml:"user_id"`
	Username          string    `json:"username" yaml:"username"`
	Time              rawTime   `json:"time" yaml:"time"`
	Verified          bool      `json:"verified" yaml:"verified"`
	SubmittedAt       time.Time `json:"submitted_at" yaml:"submitted_at"`
	DocumentationType string    `json:"documentation_type" yaml:"documentation_type"`
	MediaURL          string    `json:"media_url" yaml:"media_url"`
	LivestreamURL     string    `json:"livestream_url" yaml:"livestream_url"`
	Notes             string    `json:"notes" yaml:"notes"`
}

// decodeEntries reads a JSON or YAML list of entries. YAML is chosen by a
// .yaml/.yml name; anything else is sniffed, with '[' meaning JSON.
func decodeEntries(name string, r io.Reader) ([]model.RaceEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var raw []fileEntry
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case ext == ".yaml" || ext == ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ext == ".json" || bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")):
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInput, name, err)
	}

	entries := make([]model.RaceEntry, len(raw))
	for i, e := range raw {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		entries[i] = model.RaceEntry{
			ID:                id,
			UserID:            e.UserID,
			Username:          e.Username,
			RawTime:           string(e.Time),
			Verified:          e.Verified,
			SubmissionDate:    e.SubmittedAt,
			DocumentationType: model.DocumentationType(e.DocumentationType),
			MediaURL:          e.MediaURL,
			LivestreamURL:     e.LivestreamURL,
			Notes:             e.Notes,
		}
	}
	return entries, nil
}
