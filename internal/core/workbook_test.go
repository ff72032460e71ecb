package core_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/JonMunkholm/promptsync/internal/core"
	_ "github.com/JonMunkholm/promptsync/internal/core/tables"
	"github.com/JonMunkholm/promptsync/internal/workbook"
)

const testWorkbook = "wb-test"

// promptWorkbook is an in-memory workbook laid out like the production
// tables. Small pages make every test cross page boundaries.
type promptWorkbook struct {
	*workbook.Memory
}

func newPromptWorkbook(t *testing.T) promptWorkbook {
	t.Helper()
	m := workbook.NewMemory(2)
	m.AddTable(testWorkbook, "MessageGroups", "MsgGroup", "Description", "Status")
	m.AddTable(testWorkbook, "Messages",
		"MessageId", "Name", "GroupId", "Notes", "Type", "CustomerForMonths", "ValidStart", "ValidEnd", "Enabled")
	m.AddTable(testWorkbook, "MessageTranslations", "MessageId", "Text", "Locale")
	m.AddTable(testWorkbook, "FAQ", "Question", "Answer", "Published")
	return promptWorkbook{m}
}

func (w promptWorkbook) group(name, status string) string {
	return w.AddRow(testWorkbook, "MessageGroups", name, "", status)
}

func (w promptWorkbook) message(id, group string, typ msgType, enabled string) {
	w.AddRow(testWorkbook, "Messages", id, "", group, "", string(typ), "", "", "", enabled)
}

func (w promptWorkbook) translation(id, text, locale string) {
	w.AddRow(testWorkbook, "MessageTranslations", id, text, locale)
}

func (w promptWorkbook) faq(question, answer, published string) string {
	return w.AddRow(testWorkbook, "FAQ", question, answer, published)
}

// msgType is the message type as written in the Type column.
type msgType string

const (
	static      msgType = "Static"
	situational msgType = "Situational"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

func testOptions() core.Options {
	opts := core.DefaultOptions()
	opts.WorkbookID = testWorkbook
	opts.RunTimeout = 5 * time.Second
	return opts
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
