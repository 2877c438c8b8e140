/*
Package streaming groups the demand-driven streaming packages of backflow.

Every stream follows one protocol, defined in reactive: a Subscriber receives a Subscription,
requests Demand through it, and gets at most that many OnNext calls followed by one
OnComplete. OnNext returns additional demand, so a consumer can keep a steady window open
without a separate Request call.

  - reactive: the protocol, Sink and Collect
  - demandbuffer: queues values until they are requested and holds the terminal signal
    until the queue has drained
  - bridge: connects a publisher to a subscriber through a demand buffer, transforming
    values and failures on the way
  - source, operator, relay: publishers and operators built on the bridge
  - redisqueue, writer: edges to Redis lists and io.Writers

Basic usage:

	lines := source.Just("a", "b", "c")
	upper := operator.Map(lines, strings.ToUpper)

	w := writer.New(os.Stdout)
	operator.Map(upper, func(s string) []byte { return []byte(s + "\n") }).Subscribe(w)
	<-w.Done()

Contract violations, such as completing a stream twice, panic with *errors.ContractError.
Data failures travel as reactive.Failure and never panic.
*/
package streaming
