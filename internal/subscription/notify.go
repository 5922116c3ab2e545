package subscription

import "github.com/moqcore/relay/internal/wire"

func subscribeErrorMessage(sub *SubscriptionState, code uint64, reason string) wire.Message {
	return wire.SubscribeError{
		SubscribeID:  sub.SubscribeID,
		ErrorCode:    code,
		ReasonPhrase: reason,
		TrackAlias:   uint64(sub.TrackAlias),
	}
}
