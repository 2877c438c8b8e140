/*
Package redisqueue streams Redis lists with demand-driven backpressure.

NewPublisher pops items from the head of a list, but only while its subscriber has unmet demand
and never more per LPOP than the smaller of that demand and Config.BatchSize. Items stay in Redis
until someone is ready for them, so a slow consumer never pulls work it cannot handle and other
instances can take it instead.

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	cfg := redisqueue.DefaultConfig()
	cfg.Client = client
	cfg.Key = "jobs"
	jobs, err := redisqueue.NewPublisher(cfg)

An empty list is polled every PollInterval, or finishes the stream when StopWhenEmpty is set.
Command timeouts are retried; any other Redis error fails the stream.

NewSubscriber does the reverse: it requests BatchSize values at a time and RPUSHes each one.
Done is closed when the stream ends, and Err reports why:

	out, err := redisqueue.NewSubscriber(outCfg)
	operator.Map(jobs, process).Subscribe(out)
	<-out.Done()
	if err := out.Err(); err != nil {
		log.Fatal(err)
	}

Config carries yaml tags so queues can be declared in configuration files; the client, logger
and metrics registry are wired in code.
*/
package redisqueue
