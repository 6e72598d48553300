package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// Separator 令牌分隔符
const Separator = "|"

// MaxDatagramSize 单个报文的最大字节数
const MaxDatagramSize = 4096

// ============================================================================
//                              Envelope - 报文信封
// ============================================================================

// Envelope 线上报文
//
// 入站信封是一次性的：由消息层解码后交给唯一的消费者。
type Envelope struct {
	// NeedsReply 对端是否在等待关联回复
	NeedsReply bool

	// MsgID 发送方分配的消息 ID，回复时原样带回
	MsgID uint64

	// Payload 应用层令牌，首个令牌为 Tag
	Payload []string

	// From 来源地址（仅入站信封有效）
	From types.Address
}

// Tag 返回报文类型
func (e *Envelope) Tag() Tag {
	return TagOf(e.Payload)
}

// Args 返回 Tag 之后的参数
func (e *Envelope) Args() []string {
	if len(e.Payload) <= 1 {
		return nil
	}
	return e.Payload[1:]
}

// Encode 编码为线上格式
func (e *Envelope) Encode() []byte {
	var b strings.Builder
	b.WriteString(strconv.FormatBool(e.NeedsReply))
	b.WriteString(Separator)
	b.WriteString(strconv.FormatUint(e.MsgID, 10))
	for _, tok := range e.Payload {
		b.WriteString(Separator)
		b.WriteString(tok)
	}
	return []byte(b.String())
}

// String 调试输出
func (e *Envelope) String() string {
	return string(e.Encode())
}

// DecodeEnvelope 解码入站报文
//
// 前缀不合法时返回包装了 types.ErrProtocolViolation 的错误。
func DecodeEnvelope(data []byte, from types.Address) (*Envelope, error) {
	parts := strings.Split(string(data), Separator)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: short envelope %q", types.ErrProtocolViolation, data)
	}

	needsReply, err := strconv.ParseBool(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad needsReply flag %q", types.ErrProtocolViolation, parts[0])
	}
	msgID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad message id %q", types.ErrProtocolViolation, parts[1])
	}

	return &Envelope{
		NeedsReply: needsReply,
		MsgID:      msgID,
		Payload:    parts[2:],
		From:       from,
	}, nil
}

// TagOf 返回载荷的报文类型
func TagOf(payload []string) Tag {
	if len(payload) == 0 {
		return ""
	}
	return Tag(payload[0])
}

// ValidateTokens 检查令牌不含分隔符
func ValidateTokens(payload []string) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", types.ErrProtocolViolation)
	}
	for _, tok := range payload {
		if strings.Contains(tok, Separator) {
			return fmt.Errorf("%w: token %q contains separator", types.ErrProtocolViolation, tok)
		}
	}
	return nil
}

func itoa(v int) string     { return strconv.Itoa(v) }
func uitoa(v uint64) string { return strconv.FormatUint(v, 10) }
