package source

import (
	"errors"
	"io"
	"sync"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

const readChunk = 4096

// Pump moves bytes from a blocking ByteSource onto a queue that the
// acquisition loop drains without blocking. Its goroutine is the only one
// that waits on device I/O.
type Pump struct {
	src    ports.ByteSource
	logger ports.Logger
	queue  chan []byte
	done   chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once
	mu       sync.Mutex
	err      error
	eof      bool
}

// NewPump creates a pump buffering up to depth chunks.
func NewPump(src ports.ByteSource, logger ports.Logger, depth int) *Pump {
	if depth <= 0 {
		depth = 64
	}
	return &Pump{
		src:    src,
		logger: logger,
		queue:  make(chan []byte, depth),
		done:   make(chan struct{}),
	}
}

// Start begins reading in a goroutine.
func (p *Pump) Start() {
	p.wg.Add(1)
	go p.loop()
}

// Stop closes the source, which unblocks a pending Read, and waits for the
// goroutine to exit. It is idempotent.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		_ = p.src.Close()
	})
	p.wg.Wait()
}

func (p *Pump) loop() {
	defer p.wg.Done()
	buf := make([]byte, readChunk)
	for {
		n, err := p.src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case p.queue <- chunk:
			case <-p.done:
				return
			}
		}
		if err != nil {
			p.finish(err)
			return
		}
	}
}

func (p *Pump) finish(err error) {
	select {
	case <-p.done:
		// Closed by Stop; the read error is expected.
		return
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if errors.Is(err, io.EOF) {
		p.eof = true
		p.logger.Info("source reached end of stream")
		return
	}
	p.err = err
	p.logger.Error("source read failed", "error", err)
}

// Drain returns every queued byte without blocking, up to roughly limit
// bytes (a whole chunk is never split). limit <= 0 drains everything.
func (p *Pump) Drain(limit int) []byte {
	var out []byte
	for limit <= 0 || len(out) < limit {
		select {
		case chunk := <-p.queue:
			out = append(out, chunk...)
		default:
			return out
		}
	}
	return out
}

// Err reports a read failure, if any. End of stream is not an error.
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done reports whether the source has stopped producing.
func (p *Pump) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eof || p.err != nil
}
