// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package forward

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vectorlabs/vectord/chanmodel"
	"github.com/vectorlabs/vectord/engine"
	"github.com/vectorlabs/vectord/vectorerr"
)

// HandleCheckIn implements §4.2's Check-In Handler: on an IsAlive signal
// for channelAddress, drain every PENDING queued update in insertion
// order, processing updates for the channel serially.
func (f *Forwarder) HandleCheckIn(ctx context.Context, channelAddress common.Address) error {
	pending, err := f.Store.GetQueuedUpdates(ctx, channelAddress, chanmodel.StatusPending)
	if err != nil {
		return vectorerr.Wrap(err, nil)
	}

	for _, q := range pending {
		if err := f.Store.SetUpdateStatus(ctx, q.ID, chanmodel.StatusProcessing, ""); err != nil {
			log.Errorf("unable to mark queued update %v processing: %v", q.ID, err)
			continue
		}
		f.drainOne(ctx, q)
	}
	return nil
}

func (f *Forwarder) drainOne(ctx context.Context, q *chanmodel.QueuedRouterUpdate) {
	var err error
	switch q.Type {
	case chanmodel.QueuedTransferCreation:
		params, ok := q.Payload.(*engine.CreateParams)
		if !ok {
			f.fail(ctx, q, "malformed queued create payload")
			return
		}
		_, err = f.Engine.Outbound(ctx, engine.UpdateParams{Create: params})
	case chanmodel.QueuedTransferResolution:
		params, ok := q.Payload.(*engine.ResolveParams)
		if !ok {
			f.fail(ctx, q, "malformed queued resolve payload")
			return
		}
		_, err = f.Engine.Outbound(ctx, engine.UpdateParams{Resolve: params})
	default:
		f.fail(ctx, q, "unknown queued update type")
		return
	}

	if err == nil {
		if serr := f.Store.SetUpdateStatus(ctx, q.ID, chanmodel.StatusComplete, ""); serr != nil {
			log.Errorf("unable to mark queued update %v complete: %v", q.ID, serr)
		}
		return
	}

	// §4.2 Check-In Handler: retry later (PENDING) iff the failure was a
	// timeout, else FAILED.
	if vectorerr.IsTimeout(err) {
		if serr := f.Store.SetUpdateStatus(ctx, q.ID, chanmodel.StatusPending, err.Error()); serr != nil {
			log.Errorf("unable to reset queued update %v to pending: %v", q.ID, serr)
		}
		return
	}
	f.fail(ctx, q, err.Error())
}

func (f *Forwarder) fail(ctx context.Context, q *chanmodel.QueuedRouterUpdate, reason string) {
	if err := f.Store.SetUpdateStatus(ctx, q.ID, chanmodel.StatusFailed, reason); err != nil {
		log.Errorf("unable to mark queued update %v failed: %v", q.ID, err)
	}
}
