package app

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"replication-agent/internal/ports"
	"replication-agent/internal/types"
)

const pollProcessing = "poll"

// Poll pulls packages from the transport endpoints once, or every poll
// interval when req.Continuous is set. Polled packages are installed
// locally, or appended to the agent queue with req.Enqueue.
//
// In continuous mode a failed cycle is logged and retried on the next
// tick; the loop ends with the context.
func (a *Agent) Poll(ctx context.Context, req PollRequest) (PollResult, error) {
	if !req.Continuous {
		return a.PollOnce(ctx, req.Enqueue)
	}
	interval := time.Duration(a.Spec.Transport.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		return PollResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("transport.poll_interval_ms must be set for continuous polling")
	}

	var total PollResult
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		cycle, err := a.PollOnce(ctx, req.Enqueue)
		total.add(cycle)
		if err != nil {
			total.LastError = err
			log.Warn().Err(err).Dur("interval", interval).Msg("poll cycle failed")
		}
		select {
		case <-ctx.Done():
			return total, nil
		case <-ticker.C:
		}
	}
}

// PollOnce runs one poll cycle over every endpoint.
func (a *Agent) PollOnce(ctx context.Context, enqueue bool) (PollResult, error) {
	transport, handler, err := a.pollTransport()
	if err != nil {
		return PollResult{}, err
	}
	stop := context.AfterFunc(ctx, handler.Stop)
	defer stop()

	result := PollResult{Cycles: 1}
	importer := a.LocalImporter()
	transport.EnableProcessing(pollProcessing, ports.QueueProcessorFunc(func(ctx context.Context, _ string, item types.QueueItem) bool {
		result.Received++
		ok := a.processPolled(ctx, importer, item, enqueue)
		switch {
		case !ok:
			result.Failed++
		case enqueue:
			result.Queued++
		default:
			result.Imported++
		}
		return ok
	}))
	defer transport.DisableProcessing(pollProcessing)

	err = transport.Transport(ctx, pollProcessing, nil)
	log.Info().
		Int("received", result.Received).
		Int("imported", result.Imported).
		Int("queued", result.Queued).
		Int("failed", result.Failed).
		Msg("poll cycle finished")
	return result, err
}

func (a *Agent) processPolled(ctx context.Context, importer *LocalImporter, item types.QueueItem, enqueue bool) bool {
	pkg, found, err := a.Builder.GetPackage(ctx, item.ID)
	if err != nil || !found {
		log.Error().Err(err).Str("package", item.ID).Msg("polled package is not available locally")
		return false
	}
	defer pkg.Close()

	if !enqueue {
		return importer.ImportPackage(ctx, pkg)
	}
	queueName := a.QueueName()
	if err := a.Holders.Acquire(ctx, item.ID, queueName); err != nil {
		log.Error().Err(err).Str("package", item.ID).Msg("failed to hold polled package")
		return false
	}
	if err := a.Queue.Append(ctx, queueName, item); err != nil {
		log.Error().Err(err).Str("package", item.ID).Str("queue", queueName).Msg("failed to queue polled package")
		releaseAndDelete(ctx, a.Holders, a.Lifecycle, pkg, queueName)
		return false
	}
	advance(a.Lifecycle, item.ID, types.PackageStateQueued)
	publish(ctx, a.Events, types.EventPackageQueued, pkg, a.Clock)
	return true
}

func (r *PollResult) add(other PollResult) {
	r.Cycles += other.Cycles
	r.Received += other.Received
	r.Imported += other.Imported
	r.Queued += other.Queued
	r.Failed += other.Failed
}
