/*
Package writer drains a stream of []byte values into an io.Writer.

A Subscriber requests BatchSize values at a time, writes them through a bufio.Writer and
flushes after every batch, so a slow file or socket holds back the producer instead of
growing a queue in memory.

# Quick Start

	file, _ := os.Create("output.log")
	defer file.Close()

	w := writer.New(file)
	lines.Subscribe(w)

	<-w.Done()
	if err := w.Err(); err != nil {
		log.Fatal(err)
	}

# Configuration

	config := writer.Config{
		BatchSize:  128,       // values requested per round
		BufferSize: 32 * 1024, // bufio buffer
		Name:       "audit",
	}

	w, err := writer.NewWithConfig(file, config)

Zero values take defaults from DefaultConfig; negative sizes and a nil writer are
rejected with a *errors.ValidationError.

# Termination

Buffered data is flushed when the upstream completes, whether it finished or failed, and
when Cancel is called. Err then reports the outcome:

  - nil after a normal completion
  - the upstream failure
  - an *errors.OperationError when a write or flush failed; the upstream subscription is
    canceled at that point
  - ErrWriterClosed after Cancel

# Monitoring

Stats returns counts of values, bytes, flushes and errors. OnFlush and OnError callbacks run
on the goroutine delivering values, and Config.Metrics records flushes and bytes written per
Name.
*/
package writer
