// Package endpoint implements the publisher and subscriber façades described
// by the core specification's endpoint orchestrator: SUBSCRIBE admission and
// handoff to the subscription engine, BATCH_SUBSCRIBE expansion, TRACK_STATUS
// lookups, the CLIENT_SETUP/SERVER_SETUP handshake, and the user-facing
// subscribe/batch_subscribe entry points. A relay is simply a PublisherSession
// and SubscriberSession composed over the same DataStore.
package endpoint
