package vm

// pipe returns the two ends of an unbounded FIFO. Sends on in never block
// for long: a goroutine moves values into a growable buffer until out is
// ready for them. Closing in closes out once the buffer has drained.
func pipe[T any]() (chan<- T, <-chan T) {
	in := make(chan T)
	out := make(chan T)
	go func() {
		defer close(out)
		var buf []T
		for {
			if len(buf) == 0 {
				v, ok := <-in
				if !ok {
					return
				}
				buf = append(buf, v)
				continue
			}
			select {
			case v, ok := <-in:
				if !ok {
					for _, v := range buf {
						out <- v
					}
					return
				}
				buf = append(buf, v)
			case out <- buf[0]:
				var zero T
				buf[0] = zero
				buf = buf[1:]
			}
		}
	}()
	return in, out
}
