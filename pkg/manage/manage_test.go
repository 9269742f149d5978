package manage_test

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhpip/ezprofiler-deps/internal/control"
	"github.com/nhpip/ezprofiler-deps/internal/session"
	"github.com/nhpip/ezprofiler-deps/internal/testutil"
	"github.com/nhpip/ezprofiler-deps/pkg/manage"
)

const opTimeout = 2 * time.Second

// newManager wires a Manager to a fake profiler endpoint and a private
// registry, with the display stream captured in out.
func newManager(t *testing.T, fake *testutil.FakeProfiler, out *bytes.Buffer) *manage.Manager {
	t.Helper()
	return manage.New(
		manage.SessionConfig{
			Node: fake.Node(),
			Tool: manage.ExplicitTool(testutil.WriteFakeTool(t)),
		},
		manage.WithLogger(testutil.NewTestLogger(t)),
		manage.WithRegistry(session.NewRegistry()),
		manage.WithOutput(out),
	)
}

func startSession(t *testing.T, m *manage.Manager) {
	t.Helper()

	ctx, cancel := testutil.NewTestContext()
	t.Cleanup(cancel)

	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() {
		if sess, err := m.Session(); err == nil {
			if proc, ferr := os.FindProcess(sess.PID()); ferr == nil {
				_ = proc.Kill()
			}
		}
	})
}

func TestControlOperations_FailFastWithoutSession(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	assert.ErrorIs(t, m.EnableProfiling(manage.AnyLabel()), manage.ErrNotRunning)
	assert.ErrorIs(t, m.DisableProfiling(ctx), manage.ErrNotRunning)
	assert.ErrorIs(t, m.AllowLabelTransition(ctx, true), manage.ErrNotRunning)
	assert.ErrorIs(t, m.WaitForResultsNonBlocking(nil), manage.ErrNotRunning)
	assert.ErrorIs(t, m.Stop(ctx), manage.ErrNotRunning)

	_, err := m.WaitForResults(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, manage.ErrNotRunning)

	_, err = m.GetProfilingResults(ctx, false)
	assert.ErrorIs(t, err, manage.ErrNotRunning)
}

func TestStart_SecondSessionRejected(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	assert.ErrorIs(t, m.Start(ctx), manage.ErrAlreadyRunning)
}

func TestGetProfilingResults_DisplayIsAdditive(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	entries := []manage.ResultEntry{
		{Kind: manage.KindNormal, Label: "checkout", Backend: "sampling", Data: "fn_a 41%\n"},
		{Kind: manage.KindApproximate, Label: "billing", Backend: "none", Data: "elapsed 13ms"},
	}
	fake.SetEntries(entries)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	silent, err := m.GetProfilingResults(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, entries, silent)
	assert.Zero(t, out.Len(), "display=false must emit nothing")

	displayed, err := m.GetProfilingResults(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, silent, displayed, "display is strictly additive")
	assert.Contains(t, out.String(), "fn_a 41%")
	assert.Contains(t, out.String(), "elapsed 13ms")
}

func TestGetProfilingResults_NoCaptureCarriesDiagnostic(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	_, err := m.GetProfilingResults(ctx, true)
	require.Error(t, err)

	var noResults *manage.NoResultsError
	require.ErrorAs(t, err, &noResults)
	assert.NotEmpty(t, noResults.Diagnostic)
	assert.Zero(t, out.Len(), "a failed fetch must not emit output")
}

func TestWaitForResults_EndToEnd(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	require.NoError(t, m.EnableProfiling(manage.Label("checkout")))
	require.True(t, fake.AwaitOp("enable", opTimeout))

	entries := []manage.ResultEntry{
		{Kind: manage.KindNormal, Label: "checkout", Backend: "tracing", Data: "calls 120\n"},
	}
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = fake.PushResults(entries)
	}()

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	got, err := m.WaitForResults(ctx, opTimeout)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestWaitForResults_Timeout(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	_, err := m.WaitForResults(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, manage.ErrTimeout)
}

// asyncRecipient collects redirected notifications.
type asyncRecipient struct {
	ready chan []control.ResultEntry
}

func (r *asyncRecipient) ResultsReady(entries []control.ResultEntry) {
	r.ready <- entries
}

func (r *asyncRecipient) ResultsAvailable() {}

func (r *asyncRecipient) WaitTimeout() {}

func TestWaitForResultsNonBlocking_RedirectsDelivery(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	recipient := &asyncRecipient{ready: make(chan []control.ResultEntry, 1)}

	start := time.Now()
	require.NoError(t, m.WaitForResultsNonBlocking(recipient))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "redirect must return immediately")
	require.True(t, fake.AwaitOp("redirect", opTimeout))

	entries := []manage.ResultEntry{{Kind: manage.KindNormal, Label: "*", Data: "ok\n"}}
	require.NoError(t, fake.PushResults(entries))

	select {
	case got := <-recipient.ready:
		assert.Equal(t, entries, got)
	case <-time.After(opTimeout):
		t.Fatal("redirected recipient never received results")
	}
}

func TestStopLifecycle(t *testing.T) {
	fake := testutil.NewFakeProfiler()
	defer fake.Close()

	var out bytes.Buffer
	m := newManager(t, fake, &out)
	startSession(t, m)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, 1, fake.StopCount())

	_, err := m.Session()
	assert.ErrorIs(t, err, manage.ErrNotRunning)
	assert.ErrorIs(t, m.Stop(ctx), manage.ErrNotRunning)
}
