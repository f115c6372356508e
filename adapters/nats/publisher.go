package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"

	"github.com/RHeactorJS/rheactor-server/core/es"
)

const defaultSubjectPrefix = "rheactor.events"

type PublisherConfig struct {
	Connect       Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log           *slog.Logger // Log for diagnostics (optional)
	SubjectPrefix string       // SubjectPrefix is the prefix events are published under
}

// Publisher fans out appended envelopes to NATS. It is wired as a
// post-append hook on the repository, so only durably stored events are
// ever published. Publishing is fire-and-forget: a failed publish is
// logged and dropped, never surfaced to the command that caused it.
type Publisher struct {
	nc            *natsgo.Conn
	closeNc       closeFunc
	log           *slog.Logger
	subjectPrefix string
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeNatsCon, err := doConnect()
	if err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}

	return &Publisher{
		nc:            nc,
		closeNc:       closeNatsCon,
		log:           log.With(slog.String("publisher", "nats"), slog.String("subjectPrefix", subjectPrefix)),
		subjectPrefix: subjectPrefix,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.nc.Flush(); err != nil {
		return err
	}
	p.closeNc()
	p.log.Debug("closed publisher")
	return nil
}

// Hook adapts the publisher to the repository's post-append hook.
func (p *Publisher) Hook() es.Hook {
	return func(env es.Envelope) { p.Publish(env) }
}

func (p *Publisher) Publish(env es.Envelope) {
	subject := p.subjectFor(env)

	msg := natsgo.NewMsg(subject)
	msg.Header.Set("x-event-type", env.Type)
	msg.Header.Set("x-aggregate-type", env.AggregateType)
	msg.Header.Set("x-aggregate-id", fmt.Sprintf("%d", env.AggregateID))

	data, err := json.Marshal(env)
	if err != nil {
		p.log.Error("failed to encode envelope", slog.Any("error", err), slog.String("envelope_id", env.ID))
		return
	}
	msg.Data = data

	if err := p.nc.PublishMsg(msg); err != nil {
		p.log.Error(
			"failed to publish event",
			slog.Any("error", err),
			slog.String("subject", subject),
			slog.String("envelope_id", env.ID),
		)
		return
	}

	p.log.Debug(
		"published",
		slog.String("subject", subject),
		slog.Uint64("seq", env.Seq),
	)
}

func (p *Publisher) subjectFor(env es.Envelope) string {
	return fmt.Sprintf("%s.%s.%d.%s", p.subjectPrefix, env.AggregateType, env.AggregateID, env.Type)
}
