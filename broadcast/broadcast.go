// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/tabooarena/session"
)

// 广播接口
type Broadcaster interface {
	Publish(event string, payload interface{}) error
}

// 面向全体观察者会话的广播器
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

// Publish 把事件发给所有在线观察者，单个会话发送失败时跳过
func (b *SessionBroadcaster) Publish(event string, payload interface{}) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(event, payload); err != nil {
			// 发送失败的连接交由读循环收尾
			continue
		}
	}
	return nil
}
