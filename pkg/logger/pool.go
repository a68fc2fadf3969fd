package logger

import "errors"

// errPoolExhausted indicates all pool blocks are taken.
var errPoolExhausted = errors.New("memory pool exhausted")

// blockPool hands out fixed-size scratch buffers. The replay path
// uses a one-block pool: a single statically allocated buffer whose
// ownership is tied to holding the file mutex.
type blockPool struct {
	blocks chan []byte
}

func newBlockPool(blockSize, count int) *blockPool {
	p := &blockPool{blocks: make(chan []byte, count)}
	for i := 0; i < count; i++ {
		p.blocks <- make([]byte, blockSize)
	}
	return p
}

func (p *blockPool) alloc() ([]byte, error) {
	select {
	case b := <-p.blocks:
		return b, nil
	default:
		return nil, errPoolExhausted
	}
}

func (p *blockPool) free(b []byte) {
	select {
	case p.blocks <- b:
	default:
	}
}
