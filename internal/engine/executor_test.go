package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/payload"
	"github.com/shaiso/Sequenta/internal/task"
)

// Трёхэтапный конвейер классификации: extract → classify → store.
// classify отвечает конвертом, разворачиваемым через $.Payload.
const classificationDef = `{
	"name": "waste-classification",
	"start_at": "extract",
	"states": {
		"extract": {"task": "extract", "next": "classify"},
		"classify": {"task": "classify", "output_selector": "$.Payload", "next": "store"},
		"store": {"task": "store", "end": true}
	}
}`

func mustParse(t *testing.T, data string) *domain.WorkflowDef {
	t.Helper()
	def, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return def
}

func echo(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	return input, nil
}

func classifyFake(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	obj := input.(map[string]any)
	return map[string]any{
		"Payload": map[string]any{
			"id":             obj["id"],
			"classification": "recycle",
			"score":          0.93,
		},
	}, nil
}

func TestNew_Defaults(t *testing.T) {
	eng := New(Config{})

	if eng.invoker == nil {
		t.Error("invoker should default to task registry")
	}
	if eng.logger == nil {
		t.Error("logger should default to slog.Default")
	}
}

func TestEngine_Run_AllStagesSucceed(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("extract", task.Func(echo))
	registry.Register("classify", task.Func(classifyFake))
	registry.Register("store", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		obj := input.(map[string]any)
		return map[string]any{"stored": true, "id": obj["id"]}, nil
	}))

	eng := New(Config{Invoker: registry})
	def := mustParse(t, classificationDef)
	exec := domain.NewExecution("waste-classification", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	st := eng.Run(context.Background(), def, exec)

	if st.Phase != PhaseSucceeded {
		t.Fatalf("expected PhaseSucceeded, got %s (reason: %s)", st.Phase, st.Reason)
	}
	if exec.Status != domain.ExecutionStatusSucceeded {
		t.Errorf("expected status SUCCEEDED, got %s", exec.Status)
	}

	// По одной записи истории на каждый этап
	if len(exec.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(exec.History))
	}
	for i, name := range []string{"extract", "classify", "store"} {
		entry := exec.History[i]
		if entry.Seq != i+1 {
			t.Errorf("entry %d: expected seq %d, got %d", i, i+1, entry.Seq)
		}
		if entry.StateName != name {
			t.Errorf("entry %d: expected state %s, got %s", i, name, entry.StateName)
		}
		if entry.Output == nil {
			t.Errorf("entry %d: expected non-nil output", i)
		}
	}

	// $.Payload развернул конверт ответа classify
	classifyOut := exec.History[1].Output.(map[string]any)
	if classifyOut["classification"] != "recycle" {
		t.Errorf("expected unwrapped classification, got %v", exec.History[1].Output)
	}

	// Финальный payload — выход терминального этапа
	final := exec.CurrentPayload.(map[string]any)
	if final["stored"] != true || final["id"] != "img1" {
		t.Errorf("unexpected final payload: %v", final)
	}
	if !payload.Equal(st.Payload, exec.CurrentPayload) {
		t.Error("machine state payload should match execution payload")
	}
	if exec.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
}

func TestEngine_Run_SecondStageFails(t *testing.T) {
	storeCalled := false

	registry := task.NewRegistry()
	registry.Register("extract", task.Func(echo))
	registry.Register("classify", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		return nil, errors.New("model unavailable")
	}))
	registry.Register("store", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		storeCalled = true
		return input, nil
	}))

	eng := New(Config{Invoker: registry})
	def := mustParse(t, classificationDef)
	exec := domain.NewExecution("waste-classification", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	st := eng.Run(context.Background(), def, exec)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", st.Phase)
	}
	if exec.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected status FAILED, got %s", exec.Status)
	}

	// Отказ на втором этапе: ровно две записи истории
	if len(exec.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(exec.History))
	}
	if exec.History[0].Output == nil {
		t.Error("succeeded stage should have output")
	}
	failed := exec.History[1]
	if failed.StateName != "classify" {
		t.Errorf("expected failed state 'classify', got %s", failed.StateName)
	}
	if failed.Input == nil {
		t.Error("failed stage should record its input")
	}
	if failed.Output != nil {
		t.Errorf("failed stage should have nil output, got %v", failed.Output)
	}

	if !strings.Contains(exec.FailureReason, "state classify") {
		t.Errorf("failure reason should name the state, got %q", exec.FailureReason)
	}
	if !strings.Contains(exec.FailureReason, "model unavailable") {
		t.Errorf("failure reason should include task error, got %q", exec.FailureReason)
	}
	if storeCalled {
		t.Error("store should not be invoked after failure")
	}
}

func TestEngine_Run_FirstStageFails(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("extract", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		return nil, errors.New("bucket unreachable")
	}))
	registry.Register("classify", task.Func(classifyFake))
	registry.Register("store", task.Func(echo))

	eng := New(Config{Invoker: registry})
	def := mustParse(t, classificationDef)
	exec := domain.NewExecution("waste-classification", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	eng.Run(context.Background(), def, exec)

	if len(exec.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(exec.History))
	}
	if exec.History[0].StateName != "extract" {
		t.Errorf("expected failed state 'extract', got %s", exec.History[0].StateName)
	}
	if exec.Status != domain.ExecutionStatusFailed {
		t.Errorf("expected status FAILED, got %s", exec.Status)
	}
}

func TestEngine_Run_BuildInputFails(t *testing.T) {
	invoked := 0
	registry := task.NewRegistry()
	registry.Register("extract", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		invoked++
		return input, nil
	}))

	def := mustParse(t, `{
		"start_at": "extract",
		"states": {
			"extract": {"task": "extract", "input_selector": "$.missing.field", "end": true}
		}
	}`)

	eng := New(Config{Invoker: registry})
	exec := domain.NewExecution("wf", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	st := eng.Run(context.Background(), def, exec)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", st.Phase)
	}
	// Задача не вызывается, если вход не построен
	if invoked != 0 {
		t.Errorf("task should not be invoked, got %d calls", invoked)
	}
	if len(exec.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(exec.History))
	}
	if exec.History[0].Input != nil {
		t.Errorf("expected nil input for unbuilt stage, got %v", exec.History[0].Input)
	}
	if !strings.Contains(exec.FailureReason, "build input") {
		t.Errorf("failure reason should mention build input, got %q", exec.FailureReason)
	}
}

func TestEngine_Run_ExtractOutputFails(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("classify", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		// Ответ без ожидаемого конверта
		return map[string]any{"StatusCode": 200.0}, nil
	}))

	def := mustParse(t, `{
		"start_at": "classify",
		"states": {
			"classify": {"task": "classify", "output_selector": "$.Payload", "end": true}
		}
	}`)

	eng := New(Config{Invoker: registry})
	exec := domain.NewExecution("wf", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	st := eng.Run(context.Background(), def, exec)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", st.Phase)
	}
	if len(exec.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(exec.History))
	}
	if exec.History[0].Input == nil {
		t.Error("stage input should be recorded")
	}
	if exec.History[0].Output != nil {
		t.Error("stage output should be nil when extraction fails")
	}
	if !strings.Contains(exec.FailureReason, "extract output") {
		t.Errorf("failure reason should mention extract output, got %q", exec.FailureReason)
	}
}

func TestEngine_Run_UnknownTaskScheme(t *testing.T) {
	def := mustParse(t, `{
		"start_at": "a",
		"states": {
			"a": {"task": "ghost:whatever", "end": true}
		}
	}`)

	// Пустой реестр: ни одна схема не зарегистрирована
	eng := New(Config{Invoker: task.NewRegistry()})
	exec := domain.NewExecution("wf", 1, def.StartAt, nil)

	st := eng.Run(context.Background(), def, exec)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", st.Phase)
	}
	if !strings.Contains(exec.FailureReason, "task ghost:whatever") {
		t.Errorf("failure reason should name the task, got %q", exec.FailureReason)
	}
	if len(exec.History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(exec.History))
	}
}

func TestEngine_Run_IdentityDefaults(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("noop", task.Func(echo))

	def := mustParse(t, `{
		"start_at": "only",
		"states": {
			"only": {"task": "noop", "end": true}
		}
	}`)

	initial := payload.MustDecode(`{"id": "img1", "detail": {"bucket": {"name": "waste-images"}}}`)

	eng := New(Config{Invoker: registry})
	exec := domain.NewExecution("wf", 1, def.StartAt, initial)

	st := eng.Run(context.Background(), def, exec)

	if st.Phase != PhaseSucceeded {
		t.Fatalf("expected PhaseSucceeded, got %s (reason: %s)", st.Phase, st.Reason)
	}
	// Селекторы по умолчанию тождественны: payload проходит без изменений
	if !payload.Equal(exec.CurrentPayload, initial) {
		t.Errorf("expected payload passthrough, got %v", exec.CurrentPayload)
	}
	if !payload.Equal(exec.History[0].Input, initial) {
		t.Errorf("expected history input to match initial payload")
	}
}

func TestEngine_Run_AlreadyFinished(t *testing.T) {
	invoked := 0
	registry := task.NewRegistry()
	registry.Register("noop", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		invoked++
		return input, nil
	}))

	def := mustParse(t, `{
		"start_at": "only",
		"states": {
			"only": {"task": "noop", "end": true}
		}
	}`)

	eng := New(Config{Invoker: registry})
	exec := domain.NewExecution("wf", 1, def.StartAt, nil)

	eng.Run(context.Background(), def, exec)
	if invoked != 1 {
		t.Fatalf("expected 1 invocation, got %d", invoked)
	}

	// Повторный запуск завершённого execution ничего не выполняет
	st := eng.Run(context.Background(), def, exec)
	if st.Phase != PhaseSucceeded {
		t.Errorf("expected PhaseSucceeded, got %s", st.Phase)
	}
	if invoked != 1 {
		t.Errorf("expected no new invocations, got %d", invoked)
	}
	if len(exec.History) != 1 {
		t.Errorf("history should be unchanged, got %d entries", len(exec.History))
	}

	failedExec := domain.NewExecution("wf", 1, def.StartAt, nil)
	failedExec.MarkFailed("manual")
	st = eng.Run(context.Background(), def, failedExec)
	if st.Phase != PhaseFailed || st.Reason != "manual" {
		t.Errorf("expected failed passthrough, got %s (%s)", st.Phase, st.Reason)
	}
}

func TestEngine_Step_Advances(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("extract", task.Func(echo))
	registry.Register("classify", task.Func(classifyFake))
	registry.Register("store", task.Func(echo))

	eng := New(Config{Invoker: registry})
	def := mustParse(t, classificationDef)
	exec := domain.NewExecution("waste-classification", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))
	exec.MarkRunning()

	st := Running(exec.CurrentState, exec.CurrentPayload)

	// Первый переход: extract → classify
	st = eng.Step(context.Background(), def, st, exec)
	if st.Phase != PhaseRunning {
		t.Fatalf("expected PhaseRunning, got %s", st.Phase)
	}
	if st.StateName != "classify" {
		t.Errorf("expected state 'classify', got %s", st.StateName)
	}
	if exec.CurrentState != "classify" {
		t.Errorf("execution should advance to 'classify', got %s", exec.CurrentState)
	}
	if len(exec.History) != 1 {
		t.Errorf("expected 1 history entry after first step, got %d", len(exec.History))
	}

	// Второй переход: classify → store
	st = eng.Step(context.Background(), def, st, exec)
	if st.Phase != PhaseRunning || st.StateName != "store" {
		t.Fatalf("expected running at 'store', got %s (%s)", st.Phase, st.StateName)
	}

	// Третий переход: терминальный этап
	st = eng.Step(context.Background(), def, st, exec)
	if st.Phase != PhaseSucceeded {
		t.Fatalf("expected PhaseSucceeded, got %s", st.Phase)
	}
	if exec.Status != domain.ExecutionStatusSucceeded {
		t.Errorf("expected status SUCCEEDED, got %s", exec.Status)
	}

	// Переходов из терминальной фазы нет
	again := eng.Step(context.Background(), def, st, exec)
	if again.Phase != PhaseSucceeded {
		t.Errorf("terminal state should pass through, got %s", again.Phase)
	}
	if len(exec.History) != 3 {
		t.Errorf("history should stay at 3 entries, got %d", len(exec.History))
	}
}

func TestEngine_Run_CancelledBeforeStart(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("extract", task.Func(echo))
	registry.Register("classify", task.Func(classifyFake))
	registry.Register("store", task.Func(echo))

	eng := New(Config{Invoker: registry})
	def := mustParse(t, classificationDef)
	exec := domain.NewExecution("waste-classification", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := eng.Run(ctx, def, exec)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", st.Phase)
	}
	if !strings.Contains(exec.FailureReason, "cancelled") {
		t.Errorf("failure reason should mention cancellation, got %q", exec.FailureReason)
	}
	// Ни один этап не был начат
	if len(exec.History) != 0 {
		t.Errorf("expected empty history, got %d entries", len(exec.History))
	}
}

func TestEngine_Run_CancelledMidExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	registry := task.NewRegistry()
	registry.Register("extract", task.Func(func(c context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		cancel() // отмена после первого этапа
		return input, nil
	}))
	registry.Register("classify", task.Func(classifyFake))
	registry.Register("store", task.Func(echo))

	eng := New(Config{Invoker: registry})
	def := mustParse(t, classificationDef)
	exec := domain.NewExecution("waste-classification", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	st := eng.Run(ctx, def, exec)

	if st.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed, got %s", st.Phase)
	}
	// Первый этап завершился, второй не начинался
	if len(exec.History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(exec.History))
	}
	if !strings.Contains(exec.FailureReason, "cancelled") {
		t.Errorf("failure reason should mention cancellation, got %q", exec.FailureReason)
	}
}

func TestEngine_Run_PayloadIsolation(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("hostile", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		// Задача мутирует свой вход
		input.(map[string]any)["mutated"] = true
		return map[string]any{"ok": true}, nil
	}))

	def := mustParse(t, `{
		"start_at": "only",
		"states": {
			"only": {"task": "hostile", "end": true}
		}
	}`)

	eng := New(Config{Invoker: registry})
	exec := domain.NewExecution("wf", 1, def.StartAt, payload.MustDecode(`{"id": "img1"}`))

	eng.Run(context.Background(), def, exec)

	// Мутация задачи не видна в истории: задача получила копию
	recorded := exec.History[0].Input.(map[string]any)
	if _, ok := recorded["mutated"]; ok {
		t.Error("task mutation leaked into history input")
	}
}

func TestEngine_Run_ConcurrentExecutions(t *testing.T) {
	registry := task.NewRegistry()
	registry.Register("classify", task.Func(func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
		obj := input.(map[string]any)
		return map[string]any{"id": obj["id"], "classification": "recycle"}, nil
	}))

	def := mustParse(t, `{
		"start_at": "classify",
		"states": {
			"classify": {"task": "classify", "end": true}
		}
	}`)

	eng := New(Config{Invoker: registry})

	execs := make([]*domain.Execution, 8)
	ids := []string{"img0", "img1", "img2", "img3", "img4", "img5", "img6", "img7"}
	for i, id := range ids {
		execs[i] = domain.NewExecution("wf", 1, def.StartAt, map[string]any{"id": id})
	}

	var wg sync.WaitGroup
	for _, exec := range execs {
		wg.Add(1)
		go func(e *domain.Execution) {
			defer wg.Done()
			eng.Run(context.Background(), def, e)
		}(exec)
	}
	wg.Wait()

	// Выполнения независимы: каждое несёт собственный payload
	for i, exec := range execs {
		if exec.Status != domain.ExecutionStatusSucceeded {
			t.Errorf("execution %d: expected SUCCEEDED, got %s", i, exec.Status)
			continue
		}
		final := exec.CurrentPayload.(map[string]any)
		if final["id"] != ids[i] {
			t.Errorf("execution %d: expected id %s, got %v", i, ids[i], final["id"])
		}
	}
}
