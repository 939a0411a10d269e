package network

// 下行事件
const (
	EventNoGame         = "noGame"
	EventGameInProgress = "gameInProgress"
	EventGameStarted    = "gameStarted"
	EventTurnProgress   = "turnProgress"
	EventTurnComplete   = "turnComplete"
	EventGameOver       = "gameOver"
	EventError          = "error"
)

// 上行命令
const (
	EventStartGame = "startGame"
)

// StartGamePayload 是观察者发起对局的命令参数
type StartGamePayload struct {
	Topic  string `json:"topic"`
	TabooA string `json:"tabooA"`
	TabooB string `json:"tabooB"`
}

// GameStartedPayload 在对局成功创建时广播
type GameStartedPayload struct {
	Topic      string            `json:"topic"`
	TabooWords map[string]string `json:"tabooWords"`
	Models     map[string]string `json:"models"`
}

// TurnProgressPayload 每收到一个流式片段广播一次
type TurnProgressPayload struct {
	Player  string `json:"player"`
	Model   string `json:"model"`
	Content string `json:"content"`
}

// TurnCompletePayload 在一个未犯规回合完成时广播
type TurnCompletePayload struct {
	Player     string `json:"player"`
	Model      string `json:"model"`
	Response   string `json:"response"`
	NextPlayer string `json:"nextPlayer"`
	NextModel  string `json:"nextModel"`
}

// GameOverPayload 每局恰好广播一次
type GameOverPayload struct {
	Winner       string `json:"winner"`
	WinningModel string `json:"winningModel"`
	LosingModel  string `json:"losingModel"`
	Reason       string `json:"reason"`
}
