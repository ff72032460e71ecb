package tables

import "github.com/JonMunkholm/promptsync/internal/core"

func init() {
	registerMessageGroups()
	registerMessages()
	registerMessageTranslations()
}

// The group id is the row id, so only the name is positional.
func registerMessageGroups() {
	core.Register(core.TableSchema{
		Key:   core.SchemaGroups,
		Label: "Message Groups",
		Columns: []core.ColumnSpec{
			{Position: 0, Name: "MsgGroup", Field: core.FieldGroupName},
			{Position: core.AnyPosition, Name: "Status", Field: core.FieldStatus},
		},
	})
}

func registerMessages() {
	core.Register(core.TableSchema{
		Key:   core.SchemaMessages,
		Label: "Messages",
		Columns: []core.ColumnSpec{
			{Position: 0, Name: "MessageId", Field: core.FieldMessageID},
			{Position: 2, Name: "GroupId", Field: core.FieldGroupRef},
			{Position: 4, Name: "Type", Field: core.FieldType},
			{Position: 5, Name: "CustomerForMonths", Aliases: []string{"ReferenceId"}, Field: core.FieldCustomerForMonths},
			{Position: 6, Name: "ValidStart", Field: core.FieldValidStart},
			{Position: 7, Name: "ValidEnd", Field: core.FieldValidEnd},
			{Position: core.AnyPosition, Name: "Enabled", Field: core.FieldEnabled, Optional: true},
		},
	})
}

func registerMessageTranslations() {
	core.Register(core.TableSchema{
		Key:   core.SchemaTranslations,
		Label: "Message Translations",
		Columns: []core.ColumnSpec{
			{Position: 0, Name: "MessageId", Field: core.FieldMessageRef},
			{Position: 1, Name: "Text", Field: core.FieldText},
			{Position: 2, Name: "Locale", Field: core.FieldLocale},
		},
	})
}
