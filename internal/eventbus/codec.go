package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"leaguecoord/internal/league"
	"leaguecoord/pkg/cloudevent"
)

// Encode wraps an event in a CloudEvents envelope for cross-node delivery.
// The topic travels as the subject and the kind as the event type.
func Encode(ev Event, source string) (*cloudevent.CloudEvent, error) {
	var payload any
	switch ev.Kind {
	case KindGreeting:
		payload = ev.Greeting
	case KindDispatch, KindJobFinished:
		payload = ev.Job
	case KindLearnerMeta:
		payload = ev.Meta
	case KindActorData:
		payload = ev.Batch
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if payload == nil {
		return nil, fmt.Errorf("event kind %q has no payload", ev.Kind)
	}

	data, err := toDataMap(payload)
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("%s-%d", ev.Topic, time.Now().UnixNano())
	return cloudevent.New(string(ev.Kind), source, string(ev.Topic), id, data), nil
}

// Decode unwraps a CloudEvents envelope back into a typed event.
func Decode(ce *cloudevent.CloudEvent) (Event, error) {
	ev := Event{
		Kind:  Kind(ce.Type),
		Topic: Topic(ce.Subject),
	}
	if ce.Subject == "" {
		return Event{}, fmt.Errorf("event has no subject topic")
	}

	var target any
	switch ev.Kind {
	case KindGreeting:
		ev.Greeting = &Greeting{}
		target = ev.Greeting
	case KindDispatch, KindJobFinished:
		ev.Job = &league.Job{}
		target = ev.Job
	case KindLearnerMeta:
		ev.Meta = &league.PlayerMeta{}
		target = ev.Meta
	case KindActorData:
		ev.Batch = &league.TrajectoryBatch{}
		target = ev.Batch
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ce.Type)
	}

	raw, err := json.Marshal(ce.Data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to re-encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return Event{}, fmt.Errorf("failed to decode %s payload: %w", ev.Kind, err)
	}
	return ev, nil
}

// toDataMap round-trips a typed payload into the loosely-typed CloudEvent
// data field.
func toDataMap(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to build event data: %w", err)
	}
	return data, nil
}
