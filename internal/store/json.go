package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// JSONStore keeps each document in its own indented JSON file.
type JSONStore struct {
	participantsPath string
	assignmentsPath  string
}

func NewJSONStore(participantsPath, assignmentsPath string) *JSONStore {
	return &JSONStore{
		participantsPath: participantsPath,
		assignmentsPath:  assignmentsPath,
	}
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) LoadParticipants() (*ParticipantDocument, error) {
	doc := NewParticipantDocument()
	found, err := readJSON(s.participantsPath, doc)
	if err != nil {
		return nil, err
	}
	if !found || doc.Participants == nil {
		doc.Participants = make(map[string]Participant)
	}
	return doc, nil
}

func (s *JSONStore) SaveParticipants(doc *ParticipantDocument) error {
	return writeJSON(s.participantsPath, doc)
}

func (s *JSONStore) LoadAssignments() (*AssignmentDocument, error) {
	doc := NewAssignmentDocument()
	found, err := readJSON(s.assignmentsPath, doc)
	if err != nil {
		return nil, err
	}
	if !found || doc.Assignments == nil {
		doc.Assignments = make(map[string]string)
	}
	return doc, nil
}

func (s *JSONStore) SaveAssignments(doc *AssignmentDocument) error {
	return writeJSON(s.assignmentsPath, doc)
}

// readJSON decodes path into v. A missing file is not an error.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

// writeJSON stores v indented by four spaces with <, > and & left as is.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
