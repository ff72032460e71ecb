// Package model holds the prompt entities read from the workbook and the
// nested per-group document written to the key-value sink.
package model

// MessageType is the Type column of the messages table.
type MessageType string

const (
	TypeStatic      MessageType = "Static"
	TypeSituational MessageType = "Situational"
)

// MessageGroup is one row of the message groups table. ID is the workbook
// row id; Name is the value messages reference through their GroupId column.
type MessageGroup struct {
	ID     string
	Name   string
	Status string
}

// Message is one row of the messages table with its translations folded in.
type Message struct {
	ID                string
	Type              MessageType
	CustomerForMonths string
	ValidStart        string
	ValidEnd          string
	GroupID           string

	// Enabled is the raw enable flag cell, empty when the table has no such
	// column or the cell is blank.
	Enabled string

	// Text maps locale to translated text.
	Text map[string]string
}

// Translation is one row of the translations table.
type Translation struct {
	MessageID string
	Locale    string
	Text      string
}

// ExportRecord is the document stored per message group. It is always
// written in full; there is no partial merge.
type ExportRecord struct {
	GroupName   string             `json:"group_name" dynamodbav:"group_name"`
	Static      []StaticEntry      `json:"static" dynamodbav:"static"`
	Situational []SituationalEntry `json:"situational" dynamodbav:"situational"`
}

// StaticEntry is a message whose text does not depend on runtime context.
type StaticEntry struct {
	ID                string            `json:"id" dynamodbav:"id"`
	TextByLocale      map[string]string `json:"text_by_locale" dynamodbav:"text_by_locale"`
	CustomerForMonths string            `json:"duration" dynamodbav:"duration"`
	ValidStart        string            `json:"valid_start" dynamodbav:"valid_start"`
	ValidEnd          string            `json:"valid_end" dynamodbav:"valid_end"`
}

// SituationalEntry is a message the call flow plays only while enabled.
type SituationalEntry struct {
	Enabled           bool          `json:"enabled" dynamodbav:"enabled"`
	Detail            MessageDetail `json:"detail" dynamodbav:"detail"`
	CustomerForMonths string        `json:"duration" dynamodbav:"duration"`
	ValidStart        string        `json:"valid_start" dynamodbav:"valid_start"`
	ValidEnd          string        `json:"valid_end" dynamodbav:"valid_end"`
}

// MessageDetail carries the id and texts of a situational message.
type MessageDetail struct {
	ID           string            `json:"id" dynamodbav:"id"`
	TextByLocale map[string]string `json:"text_by_locale" dynamodbav:"text_by_locale"`
}

// MessageIDs returns every message id in the record, static first.
func (r ExportRecord) MessageIDs() []string {
	ids := make([]string, 0, len(r.Static)+len(r.Situational))
	for _, s := range r.Static {
		ids = append(ids, s.ID)
	}
	for _, s := range r.Situational {
		ids = append(ids, s.Detail.ID)
	}
	return ids
}
