// arena/arena.go
package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/tabooarena/broadcast"
	"github.com/wfunc/tabooarena/game"
	"github.com/wfunc/tabooarena/inference"
	"github.com/wfunc/tabooarena/logger"
	"github.com/wfunc/tabooarena/monitor"
	"github.com/wfunc/tabooarena/network"
)

// ErrGameInProgress 在已有对局推进时拒绝新的开局命令
var ErrGameInProgress = errors.New("a game is already in progress")

// 固定采样参数与回合节奏，按上游接口约定不可调
const (
	temperature = 1
	maxTokens   = 100
	topP        = 1
)

// Arena 持有进程内至多一局存活的对局，并独占驱动它的回合循环
type Arena struct {
	streamer    CompletionStreamer
	broadcaster broadcast.Broadcaster
	monitor     *monitor.Monitor
	roster      []string
	turnDelay   time.Duration

	current    *game.Game
	inProgress atomic.Bool
	mutex      sync.RWMutex
}

func New(streamer CompletionStreamer, broadcaster broadcast.Broadcaster, mon *monitor.Monitor, roster []string, turnDelay time.Duration) *Arena {
	return &Arena{
		streamer:    streamer,
		broadcaster: broadcaster,
		monitor:     mon,
		roster:      roster,
		turnDelay:   turnDelay,
	}
}

// Current 返回当前对局，可能为 nil。上一局只在新开局时被替换。
func (a *Arena) Current() *game.Game {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.current
}

// Running 报告是否有对局正在推进
func (a *Arena) Running() bool {
	return a.inProgress.Load()
}

// StartGame 创建新对局并启动回合循环。
// 推进中的对局未结束时同步拒绝，现有对局不受影响。
func (a *Arena) StartGame(topic, tabooA, tabooB string) error {
	if !a.inProgress.CompareAndSwap(false, true) {
		return ErrGameInProgress
	}

	g, err := game.New(topic, tabooA, tabooB, a.roster)
	if err != nil {
		a.inProgress.Store(false)
		return err
	}

	a.mutex.Lock()
	a.current = g
	a.mutex.Unlock()

	if a.monitor != nil {
		a.monitor.IncGamesStarted()
	}

	snap := g.Snapshot()
	logger.Log.Infof("Game started: topic=%q models=%v", snap.Topic, snap.PlayerModels)
	a.broadcaster.Publish(network.EventGameStarted, network.GameStartedPayload{
		Topic:      snap.Topic,
		TabooWords: snap.TabooWords,
		Models:     snap.PlayerModels,
	})

	go a.run(g)
	return nil
}

// run 顺序驱动回合直到犯规终局或不可恢复错误。守卫位在任一出口清除。
func (a *Arena) run(g *game.Game) {
	defer a.inProgress.Store(false)

	for !g.Over() {
		player := g.CurrentPlayer()
		model := g.Model(player)

		cont, err := a.playTurn(g, player, model)
		if err != nil {
			logger.Log.Errorf("Turn failed for %s (%s): %v", player, model, err)
			a.broadcaster.Publish(network.EventError,
				fmt.Sprintf("Error during %s's turn (%s): %v", player, model, err))
			if abortErr := g.Abort(); abortErr != nil {
				logger.Log.Errorf("Failed to abort game: %v", abortErr)
			}
			if a.monitor != nil {
				a.monitor.IncTurnErrors()
			}
			return
		}
		if !cont {
			return
		}

		// 对外部接口的固定节流，非正确性要求
		time.Sleep(a.turnDelay)
	}
}

// playTurn 执行一次完整回合：构造上下文、流式请求、逐片段广播、
// 终局判定。返回值指示循环是否继续。
func (a *Arena) playTurn(g *game.Game, player, model string) (bool, error) {
	if g.Over() {
		return false, nil
	}

	started := time.Now()
	req := inference.CompletionRequest{
		Messages:    g.Context(),
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
		Stream:      true,
	}

	full, err := a.streamer.StreamCompletion(context.Background(), req, func(fragment string) {
		a.broadcaster.Publish(network.EventTurnProgress, network.TurnProgressPayload{
			Player:  player,
			Model:   model,
			Content: fragment,
		})
		if a.monitor != nil {
			a.monitor.IncFragmentsStreamed()
		}
	})
	if err != nil {
		return false, err
	}
	if a.monitor != nil {
		a.monitor.ObserveTurnDuration(time.Since(started))
	}

	if g.Violates(player, full) {
		winner, err := g.DeclareViolation(player)
		if err != nil {
			return false, err
		}
		logger.Log.Infof("Game over: %s violated, winner %s", player, winner)
		a.broadcaster.Publish(network.EventGameOver, network.GameOverPayload{
			Winner:       winner,
			WinningModel: g.Model(winner),
			LosingModel:  model,
			Reason:       fmt.Sprintf("%s (%s) used their taboo word", player, model),
		})
		if a.monitor != nil {
			a.monitor.IncViolations()
		}
		return false, nil
	}

	if err := g.RecordTurn(player, model, full); err != nil {
		return false, err
	}
	next := g.CurrentPlayer()
	a.broadcaster.Publish(network.EventTurnComplete, network.TurnCompletePayload{
		Player:     player,
		Model:      model,
		Response:   full,
		NextPlayer: next,
		NextModel:  g.Model(next),
	})
	if a.monitor != nil {
		a.monitor.IncTurnsCompleted()
	}
	return true, nil
}
