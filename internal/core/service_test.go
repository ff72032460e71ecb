package core_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/promptsync/internal/core"
	"github.com/JonMunkholm/promptsync/internal/model"
	"github.com/JonMunkholm/promptsync/internal/sink"
	"github.com/JonMunkholm/promptsync/internal/workbook"
)

func newKVService(w promptWorkbook, kv sink.KV, history core.HistoryStore, opts ...core.ServiceOption) *core.Service {
	opts = append([]core.ServiceOption{core.WithClock(func() time.Time { return fixedNow })}, opts...)
	return core.NewService(w.Memory, kv, nil, history, testOptions(), opts...)
}

func TestRunKV_ScenarioA(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Live")
	w.message("M1", "G1", static, "")
	w.message("M2", "G1", situational, "true")
	w.translation("M1", "Hello", "en-US")
	w.translation("M2", "Bye", "en-US")

	kv := sink.NewMemoryKV()
	msg, err := newKVService(w, kv, nil).RunKV(context.Background())
	if err != nil {
		t.Fatalf("RunKV() error = %v", err)
	}
	if msg != "Exported 1 row(s) of prompts" {
		t.Errorf("RunKV() = %q, want %q", msg, "Exported 1 row(s) of prompts")
	}

	got, ok, err := kv.Get(context.Background(), "G1")
	if err != nil || !ok {
		t.Fatalf("Get(G1) = %v, %v", ok, err)
	}
	want := model.ExportRecord{
		GroupName: "G1",
		Static: []model.StaticEntry{
			{ID: "M1", TextByLocale: map[string]string{"en-US": "Hello"}},
		},
		Situational: []model.SituationalEntry{
			{Enabled: true, Detail: model.MessageDetail{ID: "M2", TextByLocale: map[string]string{"en-US": "Bye"}}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("record = %+v, want %+v", got, want)
	}
}

func TestRunKV_ScenarioB_EnabledAbsent(t *testing.T) {
	// A messages table without an Enabled column at all.
	m := workbook.NewMemory(10)
	m.AddTable(testWorkbook, "MessageGroups", "MsgGroup", "Description", "Status")
	m.AddTable(testWorkbook, "Messages",
		"MessageId", "Name", "GroupId", "Notes", "Type", "CustomerForMonths", "ValidStart", "ValidEnd")
	m.AddTable(testWorkbook, "MessageTranslations", "MessageId", "Text", "Locale")
	m.AddRow(testWorkbook, "MessageGroups", "G1", "", "Live")
	m.AddRow(testWorkbook, "Messages", "M2", "", "G1", "", "Situational")

	for _, mode := range []core.EnabledMode{core.EnabledLenient, core.EnabledStrict} {
		t.Run(string(mode), func(t *testing.T) {
			opts := testOptions()
			opts.EnabledMode = mode
			kv := sink.NewMemoryKV()

			if _, err := core.NewService(m, kv, nil, nil, opts).RunKV(context.Background()); err != nil {
				t.Fatalf("RunKV() error = %v", err)
			}
			got, _, _ := kv.Get(context.Background(), "G1")
			if len(got.Situational) != 1 || !got.Situational[0].Enabled {
				t.Fatalf("situational = %+v, want one enabled entry", got.Situational)
			}
			if text := got.Situational[0].Detail.TextByLocale["en-US"]; text != core.DefaultPlaceholder {
				t.Errorf("text = %q, want placeholder", text)
			}
		})
	}
}

func TestRunKV_ReferenceIdLayout(t *testing.T) {
	// Messages laid out with ReferenceId in column 5, as older workbooks are.
	m := workbook.NewMemory(10)
	m.AddTable(testWorkbook, "MessageGroups", "MsgGroup", "Description", "Status")
	m.AddTable(testWorkbook, "Messages",
		"MessageId", "Description", "GroupId", "TypePicklist", "Type", "ReferenceId", "ValidStart", "ValidEnd")
	m.AddTable(testWorkbook, "MessageTranslations", "MessageId", "Text", "Locale")
	m.AddRow(testWorkbook, "MessageGroups", "G1", "", "Live")
	m.AddRow(testWorkbook, "Messages", "M1", "", "G1", "", "Static", "REF-1")
	m.AddRow(testWorkbook, "MessageTranslations", "M1", "Hello", "en-US")

	opts := testOptions()
	opts.SchemaStrict = true
	kv := sink.NewMemoryKV()

	msg, err := core.NewService(m, kv, nil, nil, opts).RunKV(context.Background())
	if err != nil {
		t.Fatalf("RunKV() error = %v", err)
	}
	if msg != "Exported 1 row(s) of prompts" {
		t.Errorf("RunKV() = %q", msg)
	}
	got, ok, _ := kv.Get(context.Background(), "G1")
	if !ok {
		t.Fatal("group G1 not written")
	}
	if ids := got.MessageIDs(); !reflect.DeepEqual(ids, []string{"M1"}) {
		t.Errorf("message ids = %v, want [M1]", ids)
	}
}

func TestRunKV_NoLiveGroups(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Draft")

	kv := sink.NewMemoryKV()
	msg, err := newKVService(w, kv, nil).RunKV(context.Background())
	if err != nil {
		t.Fatalf("RunKV() error = %v", err)
	}
	if msg != "No prompts records to export" {
		t.Errorf("RunKV() = %q, want %q", msg, "No prompts records to export")
	}
	if kv.Puts() != 0 {
		t.Errorf("puts = %d, want 0", kv.Puts())
	}
}

func TestRunKV_SinkFailureContinuesSiblings(t *testing.T) {
	w := newPromptWorkbook(t)
	for _, g := range []string{"G1", "G2", "G3"} {
		w.group(g, "Live")
		w.message("M-"+g, g, static, "")
	}

	kv := sink.NewMemoryKV()
	kv.FailFor("G2", errors.New("ProvisionedThroughputExceeded"))

	history := core.NewMemoryHistory(10)
	res, err := newKVService(w, kv, history).Run(context.Background(), core.PathKV)

	var sinkErr *core.SinkWriteError
	if !errors.As(err, &sinkErr) || sinkErr.Group != "G2" {
		t.Fatalf("Run() error = %v, want SinkWriteError for G2", err)
	}
	if got := kv.Groups(); !reflect.DeepEqual(got, []string{"G1", "G3"}) {
		t.Errorf("written groups = %v, want [G1 G3]", got)
	}
	if res.Status != core.RunFailed || res.Rows != 2 {
		t.Errorf("result = %s with %d rows, want failed with 2", res.Status, res.Rows)
	}
	if res.Message != "" {
		t.Errorf("message = %q, want empty for a failed run", res.Message)
	}

	runs, _ := history.Recent(context.Background(), 0)
	if len(runs) != 1 || runs[0].Status != core.RunFailed {
		t.Errorf("history = %+v, want one failed run", runs)
	}
}

func TestRunKV_FailedRunReturnsNoMessage(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w promptWorkbook, kv *sink.MemoryKV)
	}{
		{
			name: "sink write fails",
			setup: func(w promptWorkbook, kv *sink.MemoryKV) {
				for _, g := range []string{"G1", "G2"} {
					w.group(g, "Live")
					w.message("M-"+g, g, static, "")
				}
				kv.FailFor("G2", errors.New("boom"))
			},
		},
		{
			name: "source query fails",
			setup: func(w promptWorkbook, kv *sink.MemoryKV) {
				w.group("G1", "Live")
				w.FailQueries("Messages", errors.New("InternalServerException"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newPromptWorkbook(t)
			kv := sink.NewMemoryKV()
			tt.setup(w, kv)
			history := core.NewMemoryHistory(10)

			msg, err := newKVService(w, kv, history).RunKV(context.Background())
			if err == nil {
				t.Fatal("RunKV() error = nil, want failure")
			}
			if msg != "" {
				t.Errorf("RunKV() = %q, want empty message on failure", msg)
			}
			runs, _ := history.Recent(context.Background(), 0)
			if len(runs) != 1 || runs[0].Message != "" {
				t.Errorf("history = %+v, want one run without a count message", runs)
			}
		})
	}
}

func TestRunKV_IdempotentOverwrite(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Live")
	w.message("M1", "G1", static, "")
	w.translation("M1", "Hello", "en-US")

	kv := sink.NewMemoryKV()
	svc := newKVService(w, kv, nil)
	ctx := context.Background()

	if _, err := svc.RunKV(ctx); err != nil {
		t.Fatalf("first RunKV() error = %v", err)
	}
	first, _, _ := kv.Get(ctx, "G1")

	if _, err := svc.RunKV(ctx); err != nil {
		t.Fatalf("second RunKV() error = %v", err)
	}
	second, _, _ := kv.Get(ctx, "G1")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second run changed record: %+v != %+v", second, first)
	}
	if got := kv.Groups(); len(got) != 1 {
		t.Errorf("groups = %v, want one", got)
	}
}

func TestRunKV_RemovedMessageDisappears(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Live")
	w.message("M1", "G1", static, "")

	kv := sink.NewMemoryKV()
	ctx := context.Background()
	kv.Put(ctx, model.ExportRecord{
		GroupName: "G1",
		Static:    []model.StaticEntry{{ID: "OLD"}},
	})

	if _, err := newKVService(w, kv, nil).RunKV(ctx); err != nil {
		t.Fatalf("RunKV() error = %v", err)
	}
	got, _, _ := kv.Get(ctx, "G1")
	if ids := got.MessageIDs(); !reflect.DeepEqual(ids, []string{"M1"}) {
		t.Errorf("message ids = %v, want [M1]", ids)
	}
}

func TestRun_SourceErrorFailsRun(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Live")
	w.FailQueries("Messages", errors.New("InternalServerException"))

	kv := sink.NewMemoryKV()
	res, err := newKVService(w, kv, nil).Run(context.Background(), core.PathKV)

	var remote *core.RemoteQueryError
	if !errors.As(err, &remote) {
		t.Fatalf("Run() error = %v, want *RemoteQueryError", err)
	}
	if res.Error == "" || res.Status != core.RunFailed {
		t.Errorf("result = %+v, want failed with error text", res)
	}
	if kv.Puts() != 0 {
		t.Errorf("puts = %d, want 0", kv.Puts())
	}
}

func TestRun_InProgressIsSkipped(t *testing.T) {
	w := newPromptWorkbook(t)
	limiter := core.NewRunLimiter(core.PathKV, core.PathBulk)
	limiter.TryAcquire(core.PathKV)
	defer limiter.Release(core.PathKV)

	reg := prometheus.NewRegistry()
	metrics := core.NewMetrics(reg)
	history := core.NewMemoryHistory(10)
	svc := newKVService(w, sink.NewMemoryKV(), history, core.WithRunLimiter(limiter), core.WithMetrics(metrics))

	res, err := svc.Run(context.Background(), core.PathKV)
	if !errors.Is(err, core.ErrRunInProgress) {
		t.Fatalf("Run() error = %v, want ErrRunInProgress", err)
	}
	if res.Status != core.RunSkipped {
		t.Errorf("status = %s, want skipped", res.Status)
	}
	if w.QueryCount() != 0 {
		t.Errorf("queries = %d, want 0", w.QueryCount())
	}
	if runs, _ := history.Recent(context.Background(), 0); len(runs) != 0 {
		t.Errorf("history = %+v, want skipped runs unrecorded", runs)
	}

	count, err := testutil.GatherAndCount(reg, "promptsync_runs_skipped_total")
	if err != nil || count != 1 {
		t.Errorf("skipped series = %d, %v, want 1", count, err)
	}
}

func TestRun_UnknownPath(t *testing.T) {
	svc := newKVService(newPromptWorkbook(t), sink.NewMemoryKV(), nil)

	_, err := svc.Run(context.Background(), "csv")
	if !errors.Is(err, core.ErrUnknownPath) {
		t.Errorf("Run() error = %v, want ErrUnknownPath", err)
	}
}

func TestRun_DisabledPath(t *testing.T) {
	svc := core.NewService(newPromptWorkbook(t).Memory, nil, nil, nil, testOptions())

	_, err := svc.Run(context.Background(), core.PathBulk)
	var cfgErr *core.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Run() error = %v, want *ConfigurationError", err)
	}
}

// slowClient blocks every row query until the context ends.
type slowClient struct {
	workbook.Client
}

func (c slowClient) QueryRows(ctx context.Context, workbookID, tableID string, filter workbook.Filter, nextToken string) (workbook.Page, error) {
	<-ctx.Done()
	return workbook.Page{}, ctx.Err()
}

func TestRun_Timeout(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Live")

	opts := testOptions()
	opts.RunTimeout = 50 * time.Millisecond
	svc := core.NewService(slowClient{w.Memory}, sink.NewMemoryKV(), nil, nil, opts)

	res, err := svc.Run(context.Background(), core.PathKV)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if code := core.MapError(err).Code; code != "RUN001" {
		t.Errorf("MapError code = %s, want RUN001", code)
	}
	if res.Status != core.RunFailed {
		t.Errorf("status = %s, want failed", res.Status)
	}
}

func TestRun_RecordsHistoryAndMetrics(t *testing.T) {
	w := newPromptWorkbook(t)
	w.group("G1", "Live")
	w.group("G2", "Live")

	reg := prometheus.NewRegistry()
	history := core.NewMemoryHistory(10)
	svc := newKVService(w, sink.NewMemoryKV(), history,
		core.WithMetrics(core.NewMetrics(reg)),
		core.WithIDGenerator(sequentialIDs()),
	)

	ctx := core.ContextWithTrigger(context.Background(), core.TriggerAPI)
	res, err := svc.Run(ctx, core.PathKV)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.RunID != "id-1" || res.Trigger != core.TriggerAPI {
		t.Errorf("result = %+v, want run id-1 triggered by api", res)
	}

	runs, _ := history.Recent(context.Background(), 5)
	if len(runs) != 1 || runs[0].RunID != "id-1" || runs[0].Rows != 2 {
		t.Errorf("history = %+v, want run id-1 with 2 rows", runs)
	}

	expected := `
		# HELP promptsync_rows_exported_total Groups written to the key-value store or rows written to the archive
		# TYPE promptsync_rows_exported_total counter
		promptsync_rows_exported_total{path="kv"} 2
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "promptsync_rows_exported_total"); err != nil {
		t.Errorf("rows metric: %v", err)
	}
}
