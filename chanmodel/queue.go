// Copyright (c) 2015-2019 The Decred developers
// Copyright (C) 2015-2017 The Lightning Network Developers

package chanmodel

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// QueuedUpdateType distinguishes the two kinds of work the forwarding
// engine defers for later delivery (§3 QueuedRouterUpdate).
type QueuedUpdateType int

const (
	QueuedTransferCreation QueuedUpdateType = iota
	QueuedTransferResolution
)

func (t QueuedUpdateType) String() string {
	if t == QueuedTransferResolution {
		return "TRANSFER_RESOLUTION"
	}
	return "TRANSFER_CREATION"
}

// QueuedUpdateStatus is the lifecycle of a queued update, per §3.
type QueuedUpdateStatus int

const (
	StatusPending QueuedUpdateStatus = iota
	StatusProcessing
	StatusComplete
	StatusFailed
	StatusUnverified
)

func (s QueuedUpdateStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusProcessing:
		return "PROCESSING"
	case StatusComplete:
		return "COMPLETE"
	case StatusFailed:
		return "FAILED"
	case StatusUnverified:
		return "UNVERIFIED"
	default:
		return "UNKNOWN"
	}
}

// QueuedRouterUpdate is a deferred create or resolve the router will retry
// on the next liveness signal for the channel, per §3 and §4.2's Check-In
// Handler.
type QueuedRouterUpdate struct {
	ID                string
	ChannelAddress    common.Address
	Type              QueuedUpdateType
	Payload           interface{}
	Status            QueuedUpdateStatus
	CreatedAt         time.Time
	LastFailureReason string
}
