package moderation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/guardbot/internal/config"
)

type portCall struct {
	op        string
	chatID    int64
	userID    int64
	messageID int
}

type fakePort struct {
	mu        sync.Mutex
	calls     []portCall
	sentTexts []string
	failOps   map[string]error
	nextMsgID int
}

func newFakePort() *fakePort {
	return &fakePort{failOps: map[string]error{}}
}

func (p *fakePort) record(call portCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.failOps[call.op]
}

func (p *fakePort) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return p.record(portCall{op: "delete", chatID: chatID, messageID: messageID})
}

func (p *fakePort) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	p.mu.Lock()
	p.nextMsgID++
	id := p.nextMsgID
	p.calls = append(p.calls, portCall{op: "send", chatID: chatID, messageID: id})
	p.sentTexts = append(p.sentTexts, text)
	err := p.failOps["send"]
	p.mu.Unlock()
	return id, err
}

func (p *fakePort) sentContaining(substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, text := range p.sentTexts {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (p *fakePort) Restrict(ctx context.Context, chatID, userID int64, canSend bool, until time.Time) error {
	op := "restrict"
	if canSend {
		op = "unrestrict"
	}
	return p.record(portCall{op: op, chatID: chatID, userID: userID})
}

func (p *fakePort) Ban(ctx context.Context, chatID, userID int64, until time.Time) error {
	op := "ban"
	if !until.IsZero() {
		op = "ban_temporary"
	}
	return p.record(portCall{op: op, chatID: chatID, userID: userID})
}

func (p *fakePort) Unban(ctx context.Context, chatID, userID int64) error {
	return p.record(portCall{op: "unban", chatID: chatID, userID: userID})
}

func (p *fakePort) GetMembership(ctx context.Context, chatID, userID int64) (*Membership, error) {
	return &Membership{}, nil
}

func (p *fakePort) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]string, 0, len(p.calls))
	for _, call := range p.calls {
		ops = append(ops, call.op)
	}
	return ops
}

func (p *fakePort) countOp(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if call.op == op {
			n++
		}
	}
	return n
}

type memLedger struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newMemLedger() *memLedger {
	return &memLedger{counts: map[string]int{}}
}

func (l *memLedger) Increment(ctx context.Context, chatID, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	key := floodKey(chatID, userID)
	l.counts[key]++
	return l.counts[key], nil
}

func (l *memLedger) Reset(ctx context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, floodKey(chatID, userID))
	return nil
}

func (l *memLedger) Get(ctx context.Context, chatID, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[floodKey(chatID, userID)], nil
}

type staticPrivileges struct {
	privileged map[int64]bool
}

func (s *staticPrivileges) IsPrivileged(ctx context.Context, chatID, userID int64) bool {
	return s.privileged[userID]
}

type noopScheduler struct {
	mu        sync.Mutex
	scheduled int
}

func (s *noopScheduler) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	s.mu.Lock()
	s.scheduled++
	s.mu.Unlock()
}

type testEnv struct {
	enforcer *Enforcer
	port     *fakePort
	ledger   *memLedger
	tracker  *memTracker
	notices  *noopScheduler
}

func newTestEnv(t *testing.T, mutate func(mod *config.Moderation)) *testEnv {
	t.Helper()

	mod := config.Moderation{
		WarnThreshold:   3,
		MuteDuration:    15 * time.Minute,
		KickOnThreshold: config.KickModeTemporary,
		NoticeTTL:       10 * time.Second,
		BannedWords:     []string{"scum"},
		LinkPatterns:    []string{"http://", "https://", "t.me/"},
	}
	if mutate != nil {
		mutate(&mod)
	}
	flood := config.Flood{RateLimitCount: 5, RateLimitPeriod: 5 * time.Second}

	tracker, err := NewMemTracker(flood.RateLimitCount, flood.RateLimitPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	port := newFakePort()
	ledger := newMemLedger()
	notices := &noopScheduler{}
	privileges := &staticPrivileges{privileged: map[int64]bool{777: true}}
	enforcer := NewEnforcer(port, ledger, tracker, privileges, NewPolicy(mod, flood), notices, 42)

	return &testEnv{
		enforcer: enforcer,
		port:     port,
		ledger:   ledger,
		tracker:  tracker,
		notices:  notices,
	}
}

func abusiveMessage(userID int64, messageID int, ts time.Time) MessageEvent {
	return MessageEvent{
		ChatID:    1,
		UserID:    userID,
		MessageID: messageID,
		UserName:  "offender",
		Text:      "you scum",
		Timestamp: ts,
		Language:  "en",
	}
}

func TestHandleMessageWarnEscalationToKick(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	base := time.Now()

	for i := 1; i <= 2; i++ {
		action, err := env.enforcer.HandleMessage(ctx, abusiveMessage(100, i, base.Add(time.Duration(i)*time.Second)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if action.Kind != ActionDeleteWarn {
			t.Fatalf("violation %d: got action %q want %q", i, action.Kind, ActionDeleteWarn)
		}
		if action.WarnCount != i {
			t.Fatalf("violation %d: got count %d want %d", i, action.WarnCount, i)
		}
	}

	action, err := env.enforcer.HandleMessage(ctx, abusiveMessage(100, 3, base.Add(3*time.Second)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionKick {
		t.Fatalf("3rd violation: got action %q want %q", action.Kind, ActionKick)
	}
	if action.WarnCount != 0 {
		t.Fatalf("count after kick: got %d want 0", action.WarnCount)
	}

	if got := env.port.countOp("delete"); got != 3 {
		t.Fatalf("deletes: got %d want 3", got)
	}
	if got := env.port.countOp("ban_temporary"); got != 1 {
		t.Fatalf("temporary bans: got %d want 1", got)
	}
	if got := env.port.countOp("unban"); got != 1 {
		t.Fatalf("unbans: got %d want 1", got)
	}

	// next violation starts from 1, not from the pre-reset value
	action, err = env.enforcer.HandleMessage(ctx, abusiveMessage(100, 4, base.Add(4*time.Second)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionDeleteWarn || action.WarnCount != 1 {
		t.Fatalf("violation after reset: got (%q,%d) want (%q,1)", action.Kind, action.WarnCount, ActionDeleteWarn)
	}
}

func TestHandleMessagePermanentKickMode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(mod *config.Moderation) {
		mod.WarnThreshold = 1
		mod.KickOnThreshold = config.KickModePermanent
	})
	ctx := context.Background()

	action, err := env.enforcer.HandleMessage(ctx, abusiveMessage(100, 1, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionKick {
		t.Fatalf("got action %q want %q", action.Kind, ActionKick)
	}
	if got := env.port.countOp("ban"); got != 1 {
		t.Fatalf("permanent bans: got %d want 1", got)
	}
	if got := env.port.countOp("unban"); got != 0 {
		t.Fatalf("unbans after permanent ban: got %d want 0", got)
	}
}

func TestHandleMessagePrivilegedPassThrough(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	action, err := env.enforcer.HandleMessage(ctx, abusiveMessage(777, 1, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionNone {
		t.Fatalf("privileged actor: got action %q want %q", action.Kind, ActionNone)
	}
	if len(env.port.ops()) != 0 {
		t.Fatalf("privileged actor must not cause any port calls, got %v", env.port.ops())
	}
	if count, _ := env.ledger.Get(ctx, 1, 777); count != 0 {
		t.Fatalf("privileged actor ledger count: got %d want 0", count)
	}
}

func TestHandleMessageBotSelfIgnored(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	action, err := env.enforcer.HandleMessage(context.Background(), abusiveMessage(42, 1, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionNone {
		t.Fatalf("own message: got action %q want %q", action.Kind, ActionNone)
	}
	if len(env.port.ops()) != 0 {
		t.Fatalf("own message must not cause port calls, got %v", env.port.ops())
	}
}

func TestHandleMessageFloodMute(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	base := time.Now()

	for i := 1; i <= 5; i++ {
		ev := MessageEvent{
			ChatID:    1,
			UserID:    100,
			MessageID: i,
			UserName:  "chatterbox",
			Text:      "hello",
			Timestamp: base.Add(time.Duration(i) * 100 * time.Millisecond),
			Language:  "en",
		}
		action, err := env.enforcer.HandleMessage(ctx, ev)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if action.Kind != ActionNone {
			t.Fatalf("message %d: got action %q want none", i, action.Kind)
		}
	}

	ev := MessageEvent{
		ChatID:    1,
		UserID:    100,
		MessageID: 6,
		UserName:  "chatterbox",
		Text:      "hello",
		Timestamp: base.Add(time.Second),
		Language:  "en",
	}
	action, err := env.enforcer.HandleMessage(ctx, ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionFloodMute {
		t.Fatalf("6th message: got action %q want %q", action.Kind, ActionFloodMute)
	}
	if got := env.port.countOp("restrict"); got != 1 {
		t.Fatalf("restricts: got %d want 1", got)
	}
	if got := env.port.countOp("delete"); got != 1 {
		t.Fatalf("deletes: got %d want 1", got)
	}
	if !env.port.sentContaining("flooding") {
		t.Fatalf("flood notice must state the reason, sent: %v", env.port.sentTexts)
	}
	// flood must not touch the warning ledger
	if count, _ := env.ledger.Get(ctx, 1, 100); count != 0 {
		t.Fatalf("ledger after flood: got %d want 0", count)
	}
}

func TestHandleMessageDeleteFailureDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.port.failOps["delete"] = errors.New("message to delete not found")
	ctx := context.Background()

	action, err := env.enforcer.HandleMessage(ctx, abusiveMessage(100, 1, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionDeleteWarn || action.WarnCount != 1 {
		t.Fatalf("got (%q,%d) want (%q,1)", action.Kind, action.WarnCount, ActionDeleteWarn)
	}
	if got := env.port.countOp("send"); got == 0 {
		t.Fatalf("notice must still be sent when delete fails")
	}
}

func TestWarnCommand(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	ev := CommandEvent{ChatID: 1, ActorID: 777, Command: "warn", Language: "en"}
	target := TargetRef{UserID: 100, Name: "offender"}

	for i := 1; i <= 2; i++ {
		action, err := env.enforcer.Warn(ctx, ev, target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if action.Kind != ActionWarn || action.WarnCount != i {
			t.Fatalf("warn %d: got (%q,%d)", i, action.Kind, action.WarnCount)
		}
	}

	action, err := env.enforcer.Warn(ctx, ev, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionKick {
		t.Fatalf("3rd warn: got %q want %q", action.Kind, ActionKick)
	}
	if count, _ := env.ledger.Get(ctx, 1, 100); count != 0 {
		t.Fatalf("ledger after threshold kick: got %d want 0", count)
	}
}

func TestCommandsRefuseOnPrivilegedTarget(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	ev := CommandEvent{ChatID: 1, ActorID: 888, Command: "warn", Language: "en"}
	target := TargetRef{UserID: 777, Name: "admin"}

	if action, err := env.enforcer.Warn(ctx, ev, target); err != nil || action.Kind != ActionRefused {
		t.Fatalf("warn on admin: got (%v,%v) want refused", action, err)
	}
	if action, err := env.enforcer.Mute(ctx, ev, target, time.Hour); err != nil || action.Kind != ActionRefused {
		t.Fatalf("mute on admin: got (%v,%v) want refused", action, err)
	}
	if action, err := env.enforcer.Ban(ctx, ev, target); err != nil || action.Kind != ActionRefused {
		t.Fatalf("ban on admin: got (%v,%v) want refused", action, err)
	}
	for _, op := range []string{"restrict", "ban", "ban_temporary", "unban"} {
		if got := env.port.countOp(op); got != 0 {
			t.Fatalf("refused commands must not %s, got %d calls", op, got)
		}
	}
}

func TestBanResetsLedger(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.ledger.Increment(ctx, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.ledger.Increment(ctx, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := CommandEvent{ChatID: 1, ActorID: 777, Command: "ban", Language: "en"}
	action, err := env.enforcer.Ban(ctx, ev, TargetRef{UserID: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionBan {
		t.Fatalf("got %q want %q", action.Kind, ActionBan)
	}
	if count, _ := env.ledger.Get(ctx, 1, 100); count != 0 {
		t.Fatalf("ledger after ban: got %d want 0", count)
	}
}

func TestUnmuteAndUnban(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	ev := CommandEvent{ChatID: 1, ActorID: 777, Language: "en"}

	if action, err := env.enforcer.Unmute(ctx, ev, TargetRef{UserID: 100}); err != nil || action.Kind != ActionUnmute {
		t.Fatalf("unmute: got (%v,%v)", action, err)
	}
	if got := env.port.countOp("unrestrict"); got != 1 {
		t.Fatalf("unrestricts: got %d want 1", got)
	}

	if action, err := env.enforcer.Unban(ctx, ev, TargetRef{UserID: 100}); err != nil || action.Kind != ActionUnban {
		t.Fatalf("unban: got (%v,%v)", action, err)
	}
	if got := env.port.countOp("unban"); got != 1 {
		t.Fatalf("unbans: got %d want 1", got)
	}
}
