package audio

import (
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

type sampleSink interface {
	push(samples []int16)
}

// pumpPCM decodes src into sink until src fails or stop is closed.
func pumpPCM(src io.Reader, sink sampleSink, chunkSize int, stop <-chan struct{}, log *zap.Logger, done chan struct{}) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	samples := make([]int16, chunkSize/BytesPerSample+1)
	var carry []byte
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			data := buf[:n]
			if len(carry) > 0 {
				data = append(carry, data...)
				carry = nil
			}
			whole := len(data) &^ 1
			count := decodeSamples(samples, data[:whole])
			sink.push(samples[:count])
			if whole < len(data) {
				carry = []byte{data[whole]}
			}
		}
		if err != nil {
			if !isClosedErr(err) {
				log.Warn("audio source read failed", zap.Error(err))
			}
			return
		}
	}
}

// waitPump waits for a pump to exit, closing its source when it does not
// finish in time.
func waitPump(done <-chan struct{}, src io.Closer, timeout time.Duration) {
	select {
	case <-done:
	case <-time.After(timeout):
		_ = src.Close()
		<-done
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}
