// game/game.go
package game

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// 固定的两个玩家槽位
const (
	PlayerA = "modelA"
	PlayerB = "modelB"
)

var (
	ErrEmptyTabooWord    = errors.New("taboo word must not be empty")
	ErrRosterTooSmall    = errors.New("model roster needs at least two entries")
	ErrGameOver          = errors.New("game is already over")
	ErrUnknownPlayer     = errors.New("unknown player id")
	ErrViolationDeclared = errors.New("violation already declared")
)

// Utterance 是共享对话历史中的一条记录
type Utterance struct {
	Player  string `json:"player"`
	Content string `json:"content"`
}

// Turn 记录一次完整且未犯规的回合
type Turn struct {
	Player    string    `json:"player"`
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot 是对局公开字段的不可变视图
type Snapshot struct {
	Topic         string            `json:"topic"`
	TabooWords    map[string]string `json:"tabooWords"`
	PlayerModels  map[string]string `json:"models"`
	Turns         []Turn            `json:"turns"`
	CurrentPlayer string            `json:"currentPlayer"`
	Status        string            `json:"status"`
	GameOver      bool              `json:"gameOver"`
	Winner        string            `json:"winner,omitempty"`
	StartTime     time.Time         `json:"startTime"`
}

// Game 是进程内唯一存活的对局记录
type Game struct {
	topic        string
	tabooWords   map[string]string // player -> lowercase word, for detection and prompting
	tabooDisplay map[string]string // player -> word as entered, for observers
	playerModels map[string]string
	history      []Utterance
	turns        []Turn
	current      string
	status       Status
	winner       string
	startTime    time.Time
	mutex        sync.RWMutex
}

// New 创建一局新游戏并为两个槽位随机分配不同的模型
func New(topic, tabooA, tabooB string, roster []string) (*Game, error) {
	if strings.TrimSpace(tabooA) == "" || strings.TrimSpace(tabooB) == "" {
		return nil, ErrEmptyTabooWord
	}
	if len(distinct(roster)) < 2 {
		return nil, ErrRosterTooSmall
	}

	modelA := roster[rand.Intn(len(roster))]
	modelB := roster[rand.Intn(len(roster))]
	for modelB == modelA {
		modelB = roster[rand.Intn(len(roster))]
	}

	return &Game{
		topic: topic,
		tabooWords: map[string]string{
			PlayerA: strings.ToLower(tabooA),
			PlayerB: strings.ToLower(tabooB),
		},
		tabooDisplay: map[string]string{
			PlayerA: tabooA,
			PlayerB: tabooB,
		},
		playerModels: map[string]string{
			PlayerA: modelA,
			PlayerB: modelB,
		},
		current:   PlayerA,
		status:    StatusInProgress,
		startTime: time.Now(),
	}, nil
}

func distinct(roster []string) []string {
	seen := make(map[string]struct{}, len(roster))
	var out []string
	for _, m := range roster {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Opponent 返回对手的玩家ID
func Opponent(player string) string {
	if player == PlayerA {
		return PlayerB
	}
	return PlayerA
}

// Topic 返回对局主题
func (g *Game) Topic() string {
	return g.topic
}

// CurrentPlayer 返回当前回合的玩家ID
func (g *Game) CurrentPlayer() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.current
}

// Model 返回指定玩家绑定的模型标识
func (g *Game) Model(player string) string {
	return g.playerModels[player]
}

// TabooWord 返回指定玩家的秘密词（小写形式）
func (g *Game) TabooWord(player string) string {
	return g.tabooWords[player]
}

// Over 报告对局是否已达到终态
func (g *Game) Over() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.status.Terminal()
}

// Status 返回对局当前状态
func (g *Game) Status() Status {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.status
}

// Winner 返回获胜玩家ID，对局未结束时为空串
func (g *Game) Winner() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.winner
}

// TurnCount 返回已记录的回合数
func (g *Game) TurnCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.turns)
}

// Violates 判定一条完整发言是否包含发言者自己的禁忌词。
// 按原始规则做大小写不敏感的子串匹配，外加两种朴素复数变体；
// 不做词边界检查，也不做词干化。
func (g *Game) Violates(player, text string) bool {
	taboo, ok := g.tabooWords[player]
	if !ok {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, taboo) ||
		strings.Contains(lower, taboo+"s") ||
		strings.Contains(lower, taboo+"es")
}

// RecordTurn 追加历史与回合记录并交换当前玩家。
// 调用方负责事先完成犯规检测。
func (g *Game) RecordTurn(player, model, text string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.status.Terminal() {
		return ErrGameOver
	}
	if player != PlayerA && player != PlayerB {
		return ErrUnknownPlayer
	}

	g.history = append(g.history, Utterance{Player: player, Content: text})
	g.turns = append(g.turns, Turn{
		Player:    player,
		Model:     model,
		Response:  text,
		Timestamp: time.Now(),
	})
	g.current = Opponent(player)
	return nil
}

// DeclareViolation 结束对局并把胜利判给未犯规的一方，返回胜者ID
func (g *Game) DeclareViolation(violator string) (string, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.status.canTransition(StatusFinished) {
		return "", ErrViolationDeclared
	}
	g.status = StatusFinished
	g.winner = Opponent(violator)
	return g.winner, nil
}

// Abort 将对局置为终态 Aborted，用于回合循环的不可恢复错误
func (g *Game) Abort() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.status.canTransition(StatusAborted) {
		return ErrTransitionNotAllowed
	}
	g.status = StatusAborted
	return nil
}

// Snapshot 返回对局的深拷贝视图，内部容器不会被外泄
func (g *Game) Snapshot() Snapshot {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	turns := make([]Turn, len(g.turns))
	copy(turns, g.turns)

	return Snapshot{
		Topic:         g.topic,
		TabooWords:    copyMap(g.tabooDisplay),
		PlayerModels:  copyMap(g.playerModels),
		Turns:         turns,
		CurrentPlayer: g.current,
		Status:        g.status.String(),
		GameOver:      g.status.Terminal(),
		Winner:        g.winner,
		StartTime:     g.startTime,
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
