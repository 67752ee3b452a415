// Package buffer provides an unbounded channel buffer. The console
// server uses it to decouple session writes from the TCP connection:
// protocol framing bytes must never block on a stalled client.
package buffer

// Unbounded returns a write end and a read end joined by a growable
// queue. Writers never block; past hardLimit the oldest item is
// dropped, which for console output is the least destructive recovery.
// Closing the write end flushes the queue and closes the read end.
func Unbounded[T any](initialCap, hardLimit int) (chan<- T, <-chan T) {
	in := make(chan T, 8)
	out := make(chan T, 8)

	go func() {
		defer close(out)

		queue := make([]T, 0, initialCap)
		for {
			var next T
			var downstream chan T
			if len(queue) > 0 {
				next = queue[0]
				downstream = out
			}

			select {
			case v, ok := <-in:
				if !ok {
					for _, item := range queue {
						out <- item
					}
					return
				}
				if len(queue) >= hardLimit {
					queue = queue[1:]
				}
				queue = append(queue, v)

			case downstream <- next:
				queue = queue[1:]
			}
		}
	}()

	return in, out
}
