package scheduler

import (
	"context"
	"errors"
	"testing"

	"crm_pipeline_backend/internal/email"
	"crm_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type fakeJobs struct {
	calls map[string]int
	err   error
}

func (f *fakeJobs) record(name string) (int, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	return 1, f.err
}

func (f *fakeJobs) RunAlertScan(context.Context) (int, error)     { return f.record(TaskAlertScan) }
func (f *fakeJobs) RunDailySummary(context.Context) (int, error)  { return f.record(TaskDailySummary) }
func (f *fakeJobs) RunReversalSweep(context.Context) (int, error) { return f.record(TaskReversalSweep) }

type fakeMailer struct{ sent []email.Message }

func (m *fakeMailer) SendNotificationEmail(_ context.Context, msg email.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type testSchedulerConfig struct {
	redisURL string
	insecure bool
	crons    [3]string
}

func (c testSchedulerConfig) GetRedisURL() string          { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool    { return c.insecure }
func (c testSchedulerConfig) GetSchedulerQueue() string    { return "" }
func (c testSchedulerConfig) GetSchedulerConcurrency() int { return 0 }
func (c testSchedulerConfig) GetAlertScanCron() string     { return c.crons[0] }
func (c testSchedulerConfig) GetDailySummaryCron() string  { return c.crons[1] }
func (c testSchedulerConfig) GetReversalSweepCron() string { return c.crons[2] }

func TestMuxRoutesPipelineTasks(t *testing.T) {
	jobs := &fakeJobs{}
	mux := newMux(jobs, &fakeMailer{}, logger.Discard())

	for _, taskType := range PeriodicTasks {
		if err := mux.ProcessTask(context.Background(), NewPipelineTask(taskType)); err != nil {
			t.Fatalf("%s: unexpected error: %v", taskType, err)
		}
		if jobs.calls[taskType] != 1 {
			t.Fatalf("%s: expected one call, got %d", taskType, jobs.calls[taskType])
		}
	}
}

func TestMuxPropagatesJobErrors(t *testing.T) {
	boom := errors.New("boom")
	mux := newMux(&fakeJobs{err: boom}, &fakeMailer{}, logger.Discard())

	err := mux.ProcessTask(context.Background(), NewPipelineTask(TaskReversalSweep))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped job error, got %v", err)
	}
}

func TestMuxDeliversNotificationEmail(t *testing.T) {
	mailer := &fakeMailer{}
	mux := newMux(&fakeJobs{}, mailer, logger.Discard())

	task, err := NewNotificationEmailTask(email.Message{ToEmail: "ana@acme.test", Body: "Hola", Category: "info"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].ToEmail != "ana@acme.test" {
		t.Fatalf("unexpected sent mail %+v", mailer.sent)
	}
}

func TestMuxSkipsRetryOnBadEmailPayload(t *testing.T) {
	mux := newMux(&fakeJobs{}, &fakeMailer{}, logger.Discard())
	err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskNotificationEmail, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestEntriesSkipsBlankCron(t *testing.T) {
	cfg := testSchedulerConfig{crons: [3]string{"0 * * * *", "", "*/15 * * * *"}}
	got := Entries(cfg)
	if len(got) != 2 || got[0].TaskType != TaskAlertScan || got[1].TaskType != TaskReversalSweep {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 || opt.TLSConfig != nil {
		t.Fatalf("unexpected opt %+v", opt)
	}

	tlsOpt, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tlsOpt.TLSConfig == nil || !tlsOpt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config, got %+v", tlsOpt.TLSConfig)
	}

	if _, err := connOpt(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}
