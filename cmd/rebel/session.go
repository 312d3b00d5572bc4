package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guidowb/rebel/internal/cleanup"
	"github.com/guidowb/rebel/internal/config"
	"github.com/guidowb/rebel/internal/emitter"
	"github.com/guidowb/rebel/internal/filter"
	"github.com/guidowb/rebel/internal/provision/aws"
	"github.com/guidowb/rebel/internal/registry"
	"github.com/guidowb/rebel/internal/stack"
	"github.com/guidowb/rebel/internal/telemetry"
	"github.com/guidowb/rebel/internal/tree"
)

// session holds what a command needs to talk to AWS.
type session struct {
	backend   *aws.Backend
	telemetry *telemetry.Provider
	registry  *registry.Registry
}

func openSession(ctx context.Context) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	backend, err := aws.New(ctx, aws.Config{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
		MaxWait: cfg.Cleanup.MaxWait,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	if debug {
		account, err := backend.AccountID(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("could not determine account")
		} else {
			log.Debug().Str("account", account).Str("region", backend.Region()).Msg("connected")
		}
	}

	return &session{backend: backend, telemetry: tp, registry: registry.Default()}, nil
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.telemetry.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}

func (s *session) builder() *tree.Builder {
	return tree.NewBuilder(s.backend, s.registry, tree.WithTracer(s.telemetry.Tracer()))
}

func (s *session) engine(dryRun bool) *cleanup.Engine {
	return cleanup.NewEngine(s.backend, s.registry,
		cleanup.WithDryRun(dryRun),
		cleanup.WithMetrics(s.telemetry.Metrics()),
		cleanup.WithTracer(s.telemetry.Tracer()),
	)
}

func (s *session) resolver() *stack.Resolver {
	return stack.NewResolver(s.backend, stackFilter(cfg.Stacks))
}

// stackFilter admits stacks carrying the provenance tag and none of the
// exclude tags.
func stackFilter(c config.StacksConfig) *filter.Filter {
	return filter.New(c.Provenance(), c.ExcludeTags)
}

// monitor returns a stack monitor reporting progress to out. The returned
// emitter must be closed when the command is done.
func (s *session) monitor(out io.Writer) (*stack.Monitor, emitter.Emitter, error) {
	metricsEmitter, err := emitter.NewMetricsEmitter(s.telemetry.Meter())
	if err != nil {
		return nil, nil, err
	}

	sinks := []emitter.Emitter{emitter.NewConsoleEmitter(out, cfg.Monitor.StatusWidth), metricsEmitter}
	if debug {
		sinks = append(sinks, emitter.NewLogEmitter(log.Logger))
	}
	e := emitter.NewMultiEmitter(sinks...)

	m := stack.NewMonitor(s.backend,
		stack.WithEmitter(e),
		stack.WithMetrics(s.telemetry.Metrics()),
		stack.WithTracer(s.telemetry.Tracer()),
		stack.WithPollInterval(cfg.Monitor.PollInterval),
		stack.WithProvenance(cfg.Stacks.Provenance()),
	)
	return m, e, nil
}
