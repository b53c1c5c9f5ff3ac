package observability

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod = "method"
	attrPath   = "path"
	attrStatus = "status"
	attrPlayer = "player"
	attrEval   = "eval"
	attrTopic  = "topic"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	return attribute.String(attrPath, path)
}

func statusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	return attribute.String(attrStatus, fmt.Sprintf("%dxx", code/100))
}

func playerAttr(playerID string) attribute.KeyValue {
	return attribute.String(attrPlayer, playerID)
}

func evalAttr(eval bool) attribute.KeyValue {
	return attribute.Bool(attrEval, eval)
}

func topicAttr(topic string) attribute.KeyValue {
	// Collapse parameterized topics to reduce cardinality
	// job.dispatch.actor-7 -> job.dispatch, actor.data.main_player_0 -> actor.data
	return attribute.String(attrTopic, normalizeTopic(topic))
}

// normalizeTopic strips the per-actor/per-player suffix off parameterized
// topics.
func normalizeTopic(topic string) string {
	for _, prefix := range []string{"job.dispatch.", "actor.data."} {
		if strings.HasPrefix(topic, prefix) {
			return strings.TrimSuffix(prefix, ".")
		}
	}
	return topic
}

// sanitizeScalarName converts a free-form scalar series name into a valid
// metric instrument name.
func sanitizeScalarName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "scalar_unnamed"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "scalar_" + out
	}
	return out
}
