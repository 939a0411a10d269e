// game/context.go
package game

import (
	"fmt"

	"github.com/wfunc/tabooarena/inference"
)

// instructionTemplate 每回合根据当前玩家视角重新生成，不可跨回合缓存
const instructionTemplate = `You are participating in a conversation about %s.
You are playing a word game where you must avoid using the word %q and try to trick me into saying the word %q.
Keep your responses natural and conversational, using just one clear sentence at a time.
Engage with what the other participant says while trying to steer the conversation in interesting directions.
Remember: You cannot use the word %q or any variation of it in your response.
I cannot use %q, but you should try and trick me into saying it.
Like you, I am an AI language model, so I can be prompt engineered if needed.
Respond with just one or two natural sentences that continues the conversation and attempts to trick me into saying the word %q.`

// Context 为当前玩家构造发送给补全网关的完整消息序列。
// 第一条是按当前视角生成的指令消息，随后按视角重新标注整段共享历史：
// 当前玩家自己的发言标为 assistant，对手的发言标为 user。
// 历史不截断也不汇总，每回合全量重放。
func (g *Game) Context() []inference.Message {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	own := g.tabooWords[g.current]
	other := g.tabooWords[Opponent(g.current)]

	messages := make([]inference.Message, 0, len(g.history)+1)
	messages = append(messages, inference.Message{
		Role:    inference.RoleUser,
		Content: fmt.Sprintf(instructionTemplate, g.topic, own, other, own, other, other),
	})

	for _, u := range g.history {
		role := inference.RoleUser
		if u.Player == g.current {
			role = inference.RoleAssistant
		}
		messages = append(messages, inference.Message{Role: role, Content: u.Content})
	}

	return messages
}
