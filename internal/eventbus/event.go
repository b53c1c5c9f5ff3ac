// Package eventbus routes typed coordination events between nodes: an
// in-memory bus for handlers within a process and an HTTP relay that
// forwards events to peer nodes as CloudEvents.
package eventbus

import (
	"strings"

	"leaguecoord/internal/league"
)

// Topic is a logical channel name. Dispatch and data topics are
// parameterized per actor and per player.
type Topic string

const (
	TopicActorGreeting Topic = "actor.greeting"
	TopicJobFinished   Topic = "job.finished"
	TopicLearnerMeta   Topic = "learner.meta"

	topicDispatchPrefix  = "job.dispatch."
	topicActorDataPrefix = "actor.data."
)

// DispatchTopic returns the per-actor job dispatch topic.
func DispatchTopic(actorID string) Topic {
	return Topic(topicDispatchPrefix + actorID)
}

// ActorDataTopic returns the per-player trajectory data topic.
func ActorDataTopic(playerID string) Topic {
	return Topic(topicActorDataPrefix + playerID)
}

// IsDispatchTopic reports whether the topic is a per-actor dispatch channel.
func IsDispatchTopic(t Topic) bool {
	return strings.HasPrefix(string(t), topicDispatchPrefix)
}

// Kind tags the payload variant carried by an Event. Kinds double as
// CloudEvent type strings on the wire.
type Kind string

const (
	KindGreeting    Kind = "league.actor.greeting"
	KindDispatch    Kind = "league.job.dispatch"
	KindJobFinished Kind = "league.job.finished"
	KindLearnerMeta Kind = "league.learner.meta"
	KindActorData   Kind = "league.actor.data"
)

// Greeting is an actor's "I am idle" signal. ReplyURL, when set, is the
// actor's own event ingress so dispatch events can be relayed back to it.
type Greeting struct {
	ActorID  string `json:"actorId"`
	ReplyURL string `json:"replyUrl,omitempty"`
}

// Event is a tagged union of the coordination event kinds. Exactly one
// payload field is non-nil, selected by Kind.
type Event struct {
	Kind  Kind
	Topic Topic

	Greeting *Greeting
	Job      *league.Job
	Meta     *league.PlayerMeta
	Batch    *league.TrajectoryBatch
}

// NewGreeting builds an actor greeting event.
func NewGreeting(actorID, replyURL string) Event {
	return Event{
		Kind:     KindGreeting,
		Topic:    TopicActorGreeting,
		Greeting: &Greeting{ActorID: actorID, ReplyURL: replyURL},
	}
}

// NewDispatch builds a job dispatch event on the job's actor topic.
func NewDispatch(job *league.Job) Event {
	return Event{
		Kind:  KindDispatch,
		Topic: DispatchTopic(job.ActorID),
		Job:   job,
	}
}

// NewJobFinished builds a job completion event.
func NewJobFinished(job *league.Job) Event {
	return Event{
		Kind:  KindJobFinished,
		Topic: TopicJobFinished,
		Job:   job,
	}
}

// NewLearnerMeta builds a learner meta update event.
func NewLearnerMeta(meta *league.PlayerMeta) Event {
	return Event{
		Kind:  KindLearnerMeta,
		Topic: TopicLearnerMeta,
		Meta:  meta,
	}
}

// NewActorData builds a trajectory data event on the batch's player topic.
func NewActorData(batch *league.TrajectoryBatch) Event {
	return Event{
		Kind:  KindActorData,
		Topic: ActorDataTopic(batch.PlayerID),
		Batch: batch,
	}
}
