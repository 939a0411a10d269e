package arena

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/tabooarena/game"
	"github.com/wfunc/tabooarena/inference"
	"github.com/wfunc/tabooarena/logger"
	"github.com/wfunc/tabooarena/network"
)

func init() {
	logger.Init()
}

var testRoster = []string{"model-one", "model-two"}

// scriptedStreamer is a test double for the CompletionStreamer interface.
// Each call plays the next scripted response, streamed as word fragments.
type scriptedStreamer struct {
	mutex   sync.Mutex
	scripts []string
	failAt  int           // 1-based call index that fails, 0 = never
	gate    chan struct{} // when set, every call blocks until the gate closes
	calls   int
}

func (s *scriptedStreamer) StreamCompletion(ctx context.Context, req inference.CompletionRequest, onDelta func(string)) (string, error) {
	s.mutex.Lock()
	s.calls++
	call := s.calls
	var script string
	if len(s.scripts) > 0 {
		script = s.scripts[(call-1)%len(s.scripts)]
	}
	gate := s.gate
	s.mutex.Unlock()

	if gate != nil {
		<-gate
	}
	if s.failAt != 0 && call == s.failAt {
		return "", errors.New("gateway unreachable")
	}

	var full strings.Builder
	for i, word := range strings.Split(script, " ") {
		fragment := word
		if i > 0 {
			fragment = " " + word
		}
		full.WriteString(fragment)
		if onDelta != nil {
			onDelta(fragment)
		}
	}
	return full.String(), nil
}

func (s *scriptedStreamer) callCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.calls
}

type recordedEvent struct {
	Event   string
	Payload interface{}
}

// recordingBroadcaster captures every published event and signals when a
// terminal event (gameOver or error) arrives.
type recordingBroadcaster struct {
	mutex    sync.Mutex
	events   []recordedEvent
	terminal chan struct{}
	closed   bool
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{terminal: make(chan struct{})}
}

func (b *recordingBroadcaster) Publish(event string, payload interface{}) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.events = append(b.events, recordedEvent{Event: event, Payload: payload})
	if (event == network.EventGameOver || event == network.EventError) && !b.closed {
		b.closed = true
		close(b.terminal)
	}
	return nil
}

func (b *recordingBroadcaster) waitTerminal(t *testing.T) {
	t.Helper()
	select {
	case <-b.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a terminal event")
	}
}

func (b *recordingBroadcaster) snapshot() []recordedEvent {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	out := make([]recordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

func (b *recordingBroadcaster) byName(name string) []recordedEvent {
	var out []recordedEvent
	for _, e := range b.snapshot() {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func TestStartGame_FirstTurnViolation(t *testing.T) {
	bc := newRecordingBroadcaster()
	streamer := &scriptedStreamer{scripts: []string{"WE SHOULD BUILD ROCKETS TOGETHER"}}
	a := New(streamer, bc, nil, testRoster, 0)

	if err := a.StartGame("space travel", "rocket", "moon"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	bc.waitTerminal(t)

	if events := bc.byName(network.EventTurnComplete); len(events) != 0 {
		t.Errorf("No turnComplete must fire on a first-turn violation, got %d", len(events))
	}

	overs := bc.byName(network.EventGameOver)
	if len(overs) != 1 {
		t.Fatalf("Expected exactly one gameOver event, got %d", len(overs))
	}
	payload := overs[0].Payload.(network.GameOverPayload)
	if payload.Winner != game.PlayerB {
		t.Errorf("Expected winner %s, got %s", game.PlayerB, payload.Winner)
	}
	if !strings.Contains(payload.Reason, game.PlayerA) {
		t.Errorf("Reason should cite the offending player, got %q", payload.Reason)
	}
	g := a.Current()
	if !strings.Contains(payload.Reason, g.Model(game.PlayerA)) {
		t.Errorf("Reason should cite the offending model, got %q", payload.Reason)
	}
	if payload.LosingModel != g.Model(game.PlayerA) || payload.WinningModel != g.Model(game.PlayerB) {
		t.Errorf("Model ids mixed up: %+v", payload)
	}

	if g.Status() != game.StatusFinished {
		t.Errorf("Expected finished game, got %v", g.Status())
	}
	if g.TurnCount() != 0 {
		t.Errorf("Violating turn must not be recorded, got %d turns", g.TurnCount())
	}
	waitStopped(t, a)
}

func TestStartGame_CleanTurnThenViolation(t *testing.T) {
	bc := newRecordingBroadcaster()
	streamer := &scriptedStreamer{scripts: []string{
		"I love exploring the cosmos",      // modelA, clean
		"Nothing beats a walk on the moon", // modelB, violates
	}}
	a := New(streamer, bc, nil, testRoster, 0)

	if err := a.StartGame("space travel", "rocket", "moon"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	bc.waitTerminal(t)

	completes := bc.byName(network.EventTurnComplete)
	if len(completes) != 1 {
		t.Fatalf("Expected exactly one turnComplete, got %d", len(completes))
	}
	payload := completes[0].Payload.(network.TurnCompletePayload)
	if payload.Player != game.PlayerA {
		t.Errorf("Expected speaking player %s, got %s", game.PlayerA, payload.Player)
	}
	if payload.NextPlayer != game.PlayerB {
		t.Errorf("Expected nextPlayer %s, got %s", game.PlayerB, payload.NextPlayer)
	}
	if payload.Response != "I love exploring the cosmos" {
		t.Errorf("Unexpected full response %q", payload.Response)
	}

	overs := bc.byName(network.EventGameOver)
	if len(overs) != 1 {
		t.Fatalf("Expected exactly one gameOver, got %d", len(overs))
	}
	if winner := overs[0].Payload.(network.GameOverPayload).Winner; winner != game.PlayerA {
		t.Errorf("Expected winner %s, got %s", game.PlayerA, winner)
	}

	snap := a.Current().Snapshot()
	if len(snap.Turns) != 1 || snap.Turns[0].Player != game.PlayerA {
		t.Errorf("History should hold exactly one modelA turn, got %+v", snap.Turns)
	}
	waitStopped(t, a)
}

func TestEventOrdering_ProgressBeforeCompletion(t *testing.T) {
	bc := newRecordingBroadcaster()
	streamer := &scriptedStreamer{scripts: []string{
		"a calm first sentence",
		"the moon did it",
	}}
	a := New(streamer, bc, nil, testRoster, 0)

	if err := a.StartGame("space travel", "rocket", "moon"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	bc.waitTerminal(t)

	events := bc.snapshot()
	sawComplete := false
	progressAfterTerminal := false
	var firstTurnFragments []string
	for _, e := range events {
		switch e.Event {
		case network.EventTurnProgress:
			if sawComplete {
				p := e.Payload.(network.TurnProgressPayload)
				if p.Player == game.PlayerA {
					progressAfterTerminal = true
				}
			} else {
				firstTurnFragments = append(firstTurnFragments, e.Payload.(network.TurnProgressPayload).Content)
			}
		case network.EventTurnComplete:
			sawComplete = true
		}
	}
	if progressAfterTerminal {
		t.Error("All turnProgress events for a turn must precede its turnComplete")
	}
	if strings.Join(firstTurnFragments, "") != "a calm first sentence" {
		t.Errorf("Fragments must reassemble the first response, got %q", strings.Join(firstTurnFragments, ""))
	}
}

func TestStartGame_RejectsConcurrentStart(t *testing.T) {
	bc := newRecordingBroadcaster()
	gate := make(chan struct{})
	streamer := &scriptedStreamer{scripts: []string{"the moon"}, gate: gate}
	a := New(streamer, bc, nil, testRoster, 0)

	if err := a.StartGame("space travel", "rocket", "moon"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	inFlight := a.Current()

	// The loop is blocked mid-stream; a second start must be rejected
	if err := a.StartGame("another topic", "sun", "star"); !errors.Is(err, ErrGameInProgress) {
		t.Fatalf("Expected ErrGameInProgress, got %v", err)
	}

	if a.Current() != inFlight {
		t.Error("A rejected start must not replace the running game")
	}
	if got := inFlight.TurnCount(); got != 0 {
		t.Errorf("A rejected start must not touch the running game's turns, got %d", got)
	}
	if inFlight.Over() {
		t.Error("A rejected start must not end the running game")
	}

	close(gate)
	bc.waitTerminal(t)
	waitStopped(t, a)
}

func TestTurnError_AbortsGameAndClearsGuard(t *testing.T) {
	bc := newRecordingBroadcaster()
	streamer := &scriptedStreamer{scripts: []string{"harmless text"}, failAt: 1}
	a := New(streamer, bc, nil, testRoster, 0)

	if err := a.StartGame("space travel", "rocket", "moon"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	bc.waitTerminal(t)

	errs := bc.byName(network.EventError)
	if len(errs) != 1 {
		t.Fatalf("Expected exactly one error event, got %d", len(errs))
	}
	msg := errs[0].Payload.(string)
	if !strings.Contains(msg, game.PlayerA) || !strings.Contains(msg, "gateway unreachable") {
		t.Errorf("Error event should name the player and the failure, got %q", msg)
	}

	if overs := bc.byName(network.EventGameOver); len(overs) != 0 {
		t.Errorf("A gateway failure must not produce a gameOver event, got %d", len(overs))
	}
	if status := a.Current().Status(); status != game.StatusAborted {
		t.Errorf("Expected aborted game, got %v", status)
	}
	waitStopped(t, a)

	// The guard is clear: a fresh game may start over the aborted one
	streamer.failAt = 0
	streamer.scripts = []string{"straight to the moon"}
	bc2 := newRecordingBroadcaster()
	a.broadcaster = bc2
	if err := a.StartGame("space travel", "rocket", "moon"); err != nil {
		t.Fatalf("StartGame after abort failed: %v", err)
	}
	bc2.waitTerminal(t)
}

func TestStartGame_InvalidInputReleasesGuard(t *testing.T) {
	bc := newRecordingBroadcaster()
	a := New(&scriptedStreamer{}, bc, nil, testRoster, 0)

	if err := a.StartGame("topic", "", "moon"); !errors.Is(err, game.ErrEmptyTabooWord) {
		t.Fatalf("Expected ErrEmptyTabooWord, got %v", err)
	}
	if a.Running() {
		t.Error("A failed creation must release the in-progress guard")
	}
	if a.Current() != nil {
		t.Error("A failed creation must not install a game")
	}
}

func TestGameStartedEvent(t *testing.T) {
	bc := newRecordingBroadcaster()
	streamer := &scriptedStreamer{scripts: []string{"a squid surfaced"}}
	a := New(streamer, bc, nil, testRoster, 0)

	if err := a.StartGame("deep sea", "Squid", "Whale"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	bc.waitTerminal(t)

	events := bc.snapshot()
	if len(events) == 0 || events[0].Event != network.EventGameStarted {
		t.Fatalf("gameStarted must be the first published event, got %+v", events[:1])
	}
	payload := events[0].Payload.(network.GameStartedPayload)
	if payload.Topic != "deep sea" {
		t.Errorf("Unexpected topic %q", payload.Topic)
	}
	if payload.TabooWords[game.PlayerA] != "Squid" || payload.TabooWords[game.PlayerB] != "Whale" {
		t.Errorf("gameStarted should carry display-cased taboo words, got %v", payload.TabooWords)
	}
	if payload.Models[game.PlayerA] == payload.Models[game.PlayerB] {
		t.Error("gameStarted should carry distinct model assignments")
	}
}

func waitStopped(t *testing.T, a *Arena) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for a.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the loop to release the guard")
		}
		time.Sleep(time.Millisecond)
	}
}
