package server

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"firstperson/scene"
)

type recorder struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (r *recorder) Enqueue(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, b)
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recorder) last(t *testing.T, v any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		t.Fatalf("no messages sent")
	}
	if err := json.Unmarshal(r.msgs[len(r.msgs)-1], v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func testSession(t *testing.T, presetName string, tick TickConfig) (*Session, *recorder) {
	t.Helper()
	preset, err := scene.LookupPreset(presetName)
	if err != nil {
		t.Fatalf("LookupPreset: %v", err)
	}
	s := NewSession("test", preset, tick)
	rec := &recorder{}
	if err := s.Attach(rec); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return s, rec
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestSessionAttachSendsScene(t *testing.T) {
	s, rec := testSession(t, "", DefaultConfig().Tick)
	var msg SceneMessage
	rec.last(t, &msg)
	if msg.Type != "scene" || msg.Session != "test" || msg.Scene != scene.DefaultPreset {
		t.Fatalf("scene message = %+v", msg)
	}
	if msg.Scenery.Ground.Size != 10 || msg.Scenery.Label.FontSize != 20 {
		t.Fatalf("scenery = %+v", msg.Scenery)
	}
	if msg.Camera.Position != [3]float32{0, 1, 0} {
		t.Fatalf("camera = %v", msg.Camera.Position)
	}
	if msg.Label != "X: 0.000, Y: 0.000, Z: 0.000" {
		t.Fatalf("label = %q", msg.Label)
	}
	s.Close()
	if !rec.closed {
		t.Fatalf("Close did not close the connection")
	}
}

func TestSessionStepMovesAndSendsFrame(t *testing.T) {
	s, rec := testSession(t, "", TickConfig{TicksPerSecond: 60, MaxDeltaSeconds: 2, MaxInputsPerTick: 8})
	s.OnInput(Input{Code: scene.KeyW, Down: true})

	f := s.Step(1)
	if !near(f.Pose.Position.X(), 10) {
		t.Fatalf("position = %v, want x=10", f.Pose.Position)
	}
	var msg FrameMessage
	rec.last(t, &msg)
	if msg.Type != "frame" || msg.Change != "translation" || msg.Camera == nil || msg.Label == nil {
		t.Fatalf("frame message = %+v", msg)
	}
	if !near(msg.Camera.Position[0], 10) || !near(msg.Camera.Position[1], 1) {
		t.Fatalf("camera = %v", msg.Camera.Position)
	}
	if *msg.Label != "X: 10.000, Y: 0.000, Z: 0.000" {
		t.Fatalf("label = %q", *msg.Label)
	}

	// 松开后不再下发
	s.OnInput(Input{Code: scene.KeyW, Down: false})
	sent := rec.count()
	f = s.Step(1)
	if f.Writes != scene.WroteNothing || rec.count() != sent {
		t.Fatalf("idle step sent a frame: writes=%v", f.Writes)
	}
	if s.TickSeq() != 2 {
		t.Fatalf("tick seq = %d", s.TickSeq())
	}
}

func TestSessionPureRotationLabelPolicy(t *testing.T) {
	cases := []struct {
		scene     string
		wantLabel bool
	}{
		{"zenn-2022-05-15", false},
		{"zenn-2022-06-04", true},
	}
	for _, tc := range cases {
		t.Run(tc.scene, func(t *testing.T) {
			s, rec := testSession(t, tc.scene, DefaultConfig().Tick)
			s.OnInput(Input{Code: scene.KeyArrowLeft, Down: true})
			s.Step(0.1)
			var msg FrameMessage
			rec.last(t, &msg)
			if msg.Camera == nil {
				t.Fatalf("camera not sent on rotation")
			}
			if (msg.Label != nil) != tc.wantLabel {
				t.Fatalf("label sent = %v, want %v", msg.Label != nil, tc.wantLabel)
			}
		})
	}
}

func TestSessionClampsDelta(t *testing.T) {
	s, _ := testSession(t, "", TickConfig{TicksPerSecond: 60, MaxDeltaSeconds: 0.25, MaxInputsPerTick: 8})
	s.OnInput(Input{Code: scene.KeyW, Down: true})
	f := s.Step(10)
	if !near(f.Pose.Position.X(), 2.5) {
		t.Fatalf("position = %v, want x=2.5", f.Pose.Position)
	}
	if s.Metrics().DeltaClamped != 1 {
		t.Fatalf("delta clamped = %d", s.Metrics().DeltaClamped)
	}
}

func TestSessionRateLimitsInputs(t *testing.T) {
	s, _ := testSession(t, "", TickConfig{TicksPerSecond: 60, MaxDeltaSeconds: 1, MaxInputsPerTick: 1})
	s.OnInput(Input{Code: scene.KeyW, Down: true})
	s.OnInput(Input{Code: scene.KeyW, Down: false})
	s.OnInput(Input{Code: scene.KeyS, Down: true})

	f := s.Step(0.1)
	if f.Intent.Move != scene.MoveUnit {
		t.Fatalf("intent after first step = %+v", f.Intent)
	}
	f = s.Step(0.1)
	if !f.Intent.IsZero() {
		t.Fatalf("intent after second step = %+v", f.Intent)
	}
	f = s.Step(0.1)
	if f.Intent.Move != -scene.MoveUnit {
		t.Fatalf("intent after third step = %+v", f.Intent)
	}
	m := s.Metrics().Snapshot()
	if m["inputs_accepted"].(int64) != 3 || m["rate_limited"].(int64) != 2 {
		t.Fatalf("metrics = %v", m)
	}
}

func TestSessionUpdateSettings(t *testing.T) {
	s, _ := testSession(t, "", DefaultConfig().Tick)
	s.UpdateSettings(4, 0)
	got := s.Settings()
	if got.MaxInputsPerTick != 4 || got.MaxDeltaSeconds != DefaultConfig().Tick.MaxDeltaSeconds {
		t.Fatalf("settings = %+v", got)
	}
}

func TestSessionReattachReplacesConnection(t *testing.T) {
	s, first := testSession(t, "", DefaultConfig().Tick)
	second := &recorder{}
	if err := s.Attach(second); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !first.closed {
		t.Fatalf("old connection left open")
	}
	if s.Detach(first) {
		t.Fatalf("stale connection detached the session")
	}
	if second.count() != 1 {
		t.Fatalf("new connection got %d messages, want scene only", second.count())
	}
}

func TestSessionAttachAfterClose(t *testing.T) {
	s, _ := testSession(t, "", DefaultConfig().Tick)
	s.Close()
	late := &recorder{}
	if err := s.Attach(late); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Attach after Close = %v, want ErrSessionClosed", err)
	}
	if late.count() != 0 {
		t.Fatalf("closed session sent %d messages", late.count())
	}
}

func TestJoinReplacesClosedSession(t *testing.T) {
	m := NewSessionManager(DefaultConfig())
	t.Cleanup(m.Shutdown)
	old, err := m.GetOrCreate("rejoin", "")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	// 旧连接退出时会话已关闭，但新连接已经拿到了同一个 ID
	old.Close()

	rec := &recorder{}
	s, err := m.Join("rejoin", "", rec)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s == old {
		t.Fatalf("joined the closed session")
	}
	if cur, ok := m.Get("rejoin"); !ok || cur != s {
		t.Fatalf("registry holds %p, want %p", cur, s)
	}
	var msg SceneMessage
	rec.last(t, &msg)
	if msg.Type != "scene" || msg.Session != "rejoin" {
		t.Fatalf("scene message = %+v", msg)
	}
	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatalf("old session ticker still running")
	}
	before := s.TickSeq()
	deadline := time.Now().Add(2 * time.Second)
	for s.TickSeq() == before {
		if time.Now().After(deadline) {
			t.Fatalf("new session is not ticking")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
