package agent

import "github.com/fwojciec/sitegen"

// DefaultWindow is the number of messages replayed from memory.
const DefaultWindow = 20

// Window returns at most the last n messages. The window never starts with a
// tool result, since providers reject results whose call was cut off.
func Window(msgs []sitegen.Message, n int) []sitegen.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	out := msgs[len(msgs)-n:]
	for len(out) > 0 {
		if _, ok := out[0].(sitegen.ToolResultMessage); !ok {
			break
		}
		out = out[1:]
	}
	return out
}
