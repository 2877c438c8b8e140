// Package relay provides CurrentValue, a publisher that always has a value.
//
// A relay is fed with Accept instead of by an upstream publisher, and it
// never fails or completes. Each subscriber first receives the value that
// was current when it subscribed, then every value accepted afterwards, but
// only as fast as it requests them. Values a subscriber has not asked for
// yet wait in that subscriber's own demand buffer.
//
//	status := relay.NewCurrentValue("starting")
//	relay.Bind(statusUpdates, status)
//
//	status.Subscribe(subscriber)
//	fmt.Println(status.Value())
package relay
