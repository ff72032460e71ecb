package core

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/promptsync/internal/logging"
	"github.com/JonMunkholm/promptsync/internal/model"
	"github.com/JonMunkholm/promptsync/internal/workbook"
)

// EmitFunc receives one fully assembled group. Returning an error stops
// assembly.
type EmitFunc func(group model.MessageGroup, msgs []model.Message) error

// Assembler joins the groups, messages and translations tables into one
// message list per live group.
type Assembler struct {
	dir          *workbook.Directory
	tables       TableNames
	groups       *Binding
	messages     *Binding
	translations *Binding
	liveStatus   string
	concurrency  int
}

// AssemblerConfig configures NewAssembler.
type AssemblerConfig struct {
	Tables       TableNames
	LiveStatus   string
	SchemaStrict bool

	// Concurrency bounds translation fetches within one group. 1 is
	// strictly sequential.
	Concurrency int
}

// NewAssembler binds the three prompt table schemas against the workbook's
// live columns. Drift warnings from non-strict binding are returned.
func NewAssembler(ctx context.Context, dir *workbook.Directory, cfg AssemblerConfig) (*Assembler, []string, error) {
	a := &Assembler{
		dir:         dir,
		tables:      cfg.Tables,
		liveStatus:  cfg.LiveStatus,
		concurrency: cfg.Concurrency,
	}
	if a.concurrency <= 0 {
		a.concurrency = 1
	}

	var warnings []string
	bind := func(key, table string) (*Binding, error) {
		schema, err := MustGet(key)
		if err != nil {
			return nil, err
		}
		cols, err := dir.Columns(ctx, table)
		if err != nil {
			return nil, err
		}
		b, w, err := Bind(schema, table, cols, cfg.SchemaStrict)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
		return b, nil
	}

	var err error
	if a.groups, err = bind(SchemaGroups, cfg.Tables.MessageGroups); err != nil {
		return nil, nil, err
	}
	if a.messages, err = bind(SchemaMessages, cfg.Tables.Messages); err != nil {
		return nil, nil, err
	}
	if a.translations, err = bind(SchemaTranslations, cfg.Tables.MessageTranslations); err != nil {
		return nil, nil, err
	}
	return a, warnings, nil
}

// Assemble streams live groups to emit in workbook order. A group is emitted
// only after all of its translations were fetched. It returns the number of
// groups emitted.
func (a *Assembler) Assemble(ctx context.Context, emit EmitFunc) (int, error) {
	statusCol := a.groups.ColumnName(FieldStatus)
	it := a.dir.Query(ctx, a.tables.MessageGroups, workbook.Equals("", statusCol, a.liveStatus))

	emitted := 0
	for it.Next() {
		rec := a.groups.Project(it.Row())
		group := model.MessageGroup{
			ID:     rec.RowID,
			Name:   rec.Get(FieldGroupName),
			Status: rec.Get(FieldStatus),
		}
		if group.Status != a.liveStatus {
			continue
		}
		if group.Name == "" {
			logging.FromContext(ctx).Warn("skipping live group without name", "row_id", group.ID)
			continue
		}

		msgs, err := a.groupMessages(ctx, group.Name)
		if err != nil {
			return emitted, err
		}
		if err := emit(group, msgs); err != nil {
			return emitted, err
		}
		emitted++
	}
	if err := it.Err(); err != nil {
		return emitted, err
	}
	return emitted, nil
}

// groupMessages fetches the messages of one group and their translations.
func (a *Assembler) groupMessages(ctx context.Context, groupName string) ([]model.Message, error) {
	groupCol := a.messages.ColumnName(FieldGroupRef)
	rows, err := workbook.Collect(a.dir.Query(ctx, a.tables.Messages, workbook.Equals("", groupCol, groupName)))
	if err != nil {
		return nil, err
	}

	msgs := make([]model.Message, len(rows))
	for i, row := range rows {
		rec := a.messages.Project(row)
		msgs[i] = model.Message{
			ID:                rec.Get(FieldMessageID),
			Type:              model.MessageType(rec.Get(FieldType)),
			CustomerForMonths: rec.Get(FieldCustomerForMonths),
			ValidStart:        rec.Get(FieldValidStart),
			ValidEnd:          rec.Get(FieldValidEnd),
			GroupID:           rec.Get(FieldGroupRef),
			Enabled:           rec.Get(FieldEnabled),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].Text = map[string]string{}
			continue
		}
		g.Go(func() error {
			text, err := a.messageTexts(gctx, msgs[i].ID)
			if err != nil {
				return fmt.Errorf("group %q message %q: %w", groupName, msgs[i].ID, err)
			}
			msgs[i].Text = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// messageTexts folds the translations of one message into locale -> text.
// The last row wins for a repeated locale. Rows without a locale are skipped.
func (a *Assembler) messageTexts(ctx context.Context, messageID string) (map[string]string, error) {
	refCol := a.translations.ColumnName(FieldMessageRef)
	it := a.dir.Query(ctx, a.tables.MessageTranslations, workbook.Equals("", refCol, messageID))

	text := make(map[string]string)
	for it.Next() {
		row := it.Row()
		tr := a.translation(row)
		if strings.TrimSpace(tr.Locale) == "" {
			logging.FromContext(ctx).Warn("skipping translation without locale",
				"message_id", messageID,
				"row_id", row.ID,
			)
			continue
		}
		text[tr.Locale] = tr.Text
	}
	return text, it.Err()
}

func (a *Assembler) translation(row workbook.Row) model.Translation {
	rec := a.translations.Project(row)
	return model.Translation{
		MessageID: rec.Get(FieldMessageRef),
		Locale:    rec.Get(FieldLocale),
		Text:      rec.Get(FieldText),
	}
}
